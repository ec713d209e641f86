package api

import (
	"context"
	"net/http"
)

// Contact is someone the caller can message.
type Contact struct {
	ID     ID     `json:"id" yaml:"id"`
	Name   string `json:"name" yaml:"name"`
	Avatar string `json:"avatar,omitempty" yaml:"avatar,omitempty"`
	Email  string `json:"email,omitempty" yaml:"email,omitempty"`
}

// ListContacts returns the messaging contacts, without the caller, in server order.
func (c *Client) ListContacts(ctx context.Context) ([]Contact, error) {
	var contacts []Contact
	err := c.do(ctx, request{
		op:     "load contacts",
		method: http.MethodGet,
		path:   "/contacts",
		auth:   true,
	}, &contacts)
	if err != nil {
		return nil, err
	}

	sess, _ := c.store.Get()
	return withoutSelf(contacts, sess.UserID), nil
}

func withoutSelf(contacts []Contact, self ID) []Contact {
	out := make([]Contact, 0, len(contacts))
	for _, contact := range contacts {
		if self != "" && contact.ID == self {
			continue
		}
		out = append(out, contact)
	}
	return out
}
