package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/attention/internal/errors"
)

// Message is one entry in a conversation with a contact.
type Message struct {
	ID        ID     `json:"id,omitempty" yaml:"id,omitempty"`
	FromID    ID     `json:"from_id" yaml:"from_id"`
	ToID      ID     `json:"to_id,omitempty" yaml:"to_id,omitempty"`
	Body      string `json:"body" yaml:"body"`
	Image     string `json:"image,omitempty" yaml:"image,omitempty"`
	CreatedAt string `json:"created_at,omitempty" yaml:"created_at,omitempty"`
}

// Attachment is an image sent along with a message.
type Attachment struct {
	Name        string
	ContentType string
	Data        io.Reader
}

// UnreadCount is the number of unread messages across all contacts.
type UnreadCount struct {
	Count int `json:"cantidad" yaml:"count"`
}

// NewTemporaryMsgID returns the client-side id the backend echoes back
// until the message has a real one.
var NewTemporaryMsgID = func() string {
	return uuid.NewString()
}

type contactRef struct {
	ID ID `json:"id"`
}

// FetchMessages returns the conversation with a contact. A response
// without a message list is an empty conversation.
func (c *Client) FetchMessages(ctx context.Context, contactID ID) ([]Message, error) {
	if contactID == "" {
		return nil, errors.NewInvalidInputError("contact id is required")
	}

	var resp struct {
		Messages []Message `json:"messages"`
	}
	err := c.do(ctx, request{
		op:     "load messages",
		method: http.MethodPost,
		path:   "/messages/fetch",
		body:   contactRef{ID: contactID},
		auth:   true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Messages == nil {
		return []Message{}, nil
	}
	return resp.Messages, nil
}

type sendMessageRequest struct {
	ID             ID     `json:"id"`
	Message        string `json:"message"`
	TemporaryMsgID string `json:"temporaryMsgId"`
}

// SendMessage sends text, an image, or both to a contact. Text-only
// messages go as JSON; an attachment switches to multipart with the image
// in the "file" part.
func (c *Client) SendMessage(ctx context.Context, contactID ID, text string, image *Attachment) (*Message, error) {
	if contactID == "" {
		return nil, errors.NewInvalidInputError("contact id is required")
	}
	if strings.TrimSpace(text) == "" && image == nil {
		return nil, errors.NewInvalidInputError("message is empty")
	}

	payload := sendMessageRequest{
		ID:             contactID,
		Message:        text,
		TemporaryMsgID: NewTemporaryMsgID(),
	}
	req := request{
		op:     "send message",
		method: http.MethodPost,
		path:   "/messages/send",
		auth:   true,
	}

	if image == nil {
		req.body = payload
	} else {
		body, contentType, err := multipartMessage(payload, image)
		if err != nil {
			return nil, errors.NewInvalidInputError(fmt.Sprintf("could not read image: %v", err))
		}
		req.raw = body
		req.contentType = contentType
	}

	var resp struct {
		MessageData *Message `json:"message_data"`
	}
	if err := c.do(ctx, req, &resp); err != nil {
		return nil, err
	}
	if resp.MessageData == nil {
		return nil, errors.NewMalformedResponseError("send message", fmt.Errorf("missing message_data"))
	}
	return resp.MessageData, nil
}

func multipartMessage(payload sendMessageRequest, image *Attachment) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := [][2]string{
		{"id", payload.ID.String()},
		{"message", payload.Message},
		{"temporaryMsgId", payload.TemporaryMsgID},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}

	name := image.Name
	if name == "" {
		name = "photo.jpg"
	}
	contentType := image.ContentType
	if contentType == "" {
		contentType = "image/jpeg"
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, image.Data); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// Unread returns the unread message count.
func (c *Client) Unread(ctx context.Context) (*UnreadCount, error) {
	var n UnreadCount
	err := c.do(ctx, request{
		op:     "load unread messages",
		method: http.MethodGet,
		path:   "/messages/unread",
		auth:   true,
	}, &n)
	if err != nil {
		return nil, err
	}
	return &n, nil
}
