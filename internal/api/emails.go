package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/felixgeelhaar/attention/internal/errors"
)

// Filter selects which emails ListEmails returns.
type Filter string

const (
	FilterAll              Filter = "all"
	FilterAnsweredByGemini Filter = "answered_by_gemini"
	FilterToBeAnswered     Filter = "to_be_answered"
)

// Filters lists the accepted filter values.
var Filters = []Filter{FilterAll, FilterAnsweredByGemini, FilterToBeAnswered}

// ParseFilter accepts the wire names; "" means all.
func ParseFilter(s string) (Filter, error) {
	if s == "" {
		return FilterAll, nil
	}
	for _, f := range Filters {
		if string(f) == s {
			return f, nil
		}
	}
	return "", errors.NewInvalidInputError(fmt.Sprintf("unknown email filter %q", s)).
		WithSuggestion("Use one of: all, answered_by_gemini, to_be_answered")
}

// Email is an inbound message awaiting or holding a reply.
type Email struct {
	ID             ID     `json:"id" yaml:"id"`
	From           string `json:"from" yaml:"from"`
	Subject        string `json:"subject" yaml:"subject"`
	Body           string `json:"body" yaml:"body"`
	SuggestedReply string `json:"respuestaIA,omitempty" yaml:"suggested_reply,omitempty"`
	Status         string `json:"status,omitempty" yaml:"status,omitempty"`
}

// Reply is the payload of /emails/send.
type Reply struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// ReplySubject prefixes the original subject with "RE: ".
func ReplySubject(subject string) string {
	return "RE: " + subject
}

// ListEmails returns emails in server order. FilterAll sends no filter.
func (c *Client) ListEmails(ctx context.Context, filter Filter) ([]Email, error) {
	var query url.Values
	if filter != "" && filter != FilterAll {
		query = url.Values{"filter": {string(filter)}}
	}

	var emails []Email
	err := c.do(ctx, request{
		op:     "load emails",
		method: http.MethodGet,
		path:   "/emails",
		query:  query,
		auth:   true,
	}, &emails)
	if err != nil {
		return nil, err
	}
	return emails, nil
}

// GetEmail finds one email by id among the unfiltered list.
func (c *Client) GetEmail(ctx context.Context, id ID) (*Email, error) {
	emails, err := c.ListEmails(ctx, FilterAll)
	if err != nil {
		return nil, err
	}
	for i := range emails {
		if emails[i].ID == id {
			return &emails[i], nil
		}
	}
	return nil, errors.NewInvalidInputError(fmt.Sprintf("no email with id %s", id))
}

// UpdateEmailStatus sets an email's status.
func (c *Client) UpdateEmailStatus(ctx context.Context, id ID, status string) error {
	if id == "" || strings.TrimSpace(status) == "" {
		return errors.NewInvalidInputError("email id and status are required")
	}
	return c.do(ctx, request{
		op:     "update email status",
		method: http.MethodPost,
		path:   "/emails/" + escape(id) + "/updateStatus",
		body:   map[string]string{"status": status},
		auth:   true,
	}, nil)
}

// SendReply answers email from the logged-in account. A blank body is
// rejected before anything is sent.
func (c *Client) SendReply(ctx context.Context, email Email, body string) (*Reply, error) {
	if strings.TrimSpace(body) == "" {
		return nil, errors.NewInvalidInputError("reply body is empty")
	}
	sess, ok := c.store.Get()
	if !ok || !sess.Authenticated() {
		return nil, errors.NewSessionMissingError("send reply")
	}

	reply := Reply{
		From:    sess.Email,
		To:      email.From,
		Subject: ReplySubject(email.Subject),
		Body:    body,
	}
	err := c.do(ctx, request{
		op:     "send reply",
		method: http.MethodPost,
		path:   "/emails/send",
		body:   reply,
		auth:   true,
	}, nil)
	if err != nil {
		return nil, err
	}
	return &reply, nil
}
