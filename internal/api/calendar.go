package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/felixgeelhaar/attention/internal/errors"
)

// Event is a calendar entry. Start and End are kept as the backend sends them.
type Event struct {
	ID          ID     `json:"id" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Start       string `json:"start" yaml:"start"`
	End         string `json:"end" yaml:"end"`
}

// EventInput is the payload for creating an event.
type EventInput struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Start       string `json:"start"`
	End         string `json:"end"`
}

// Validate checks required fields and, when both bounds are RFC 3339, their order.
func (in EventInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return errors.NewInvalidInputError("event title is required")
	}
	if in.Start == "" || in.End == "" {
		return errors.NewInvalidInputError("event start and end are required")
	}
	start, errStart := time.Parse(time.RFC3339, in.Start)
	end, errEnd := time.Parse(time.RFC3339, in.End)
	if errStart == nil && errEnd == nil && end.Before(start) {
		return errors.NewInvalidInputError(fmt.Sprintf("event ends (%s) before it starts (%s)", in.End, in.Start))
	}
	return nil
}

// ListEvents returns the caller's calendar events. The backend answers
// with either a bare array or {"events": [...]}.
func (c *Client) ListEvents(ctx context.Context) ([]Event, error) {
	var raw json.RawMessage
	err := c.do(ctx, request{
		op:     "load calendar events",
		method: http.MethodGet,
		path:   "/calendars",
		auth:   true,
	}, &raw)
	if err != nil {
		return nil, err
	}

	events, err := decodeEvents(raw)
	if err != nil {
		return nil, errors.NewMalformedResponseError("load calendar events", err)
	}
	return events, nil
}

func decodeEvents(raw json.RawMessage) ([]Event, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var events []Event
		if err := json.Unmarshal(trimmed, &events); err != nil {
			return nil, err
		}
		return events, nil
	}

	var wrapped struct {
		Events *[]Event `json:"events"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return nil, err
	}
	if wrapped.Events == nil {
		return nil, fmt.Errorf("missing events list")
	}
	return *wrapped.Events, nil
}

// CreateEvent creates an event. Only 201 Created counts as success.
func (c *Client) CreateEvent(ctx context.Context, in EventInput) (*Event, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var raw json.RawMessage
	err := c.do(ctx, request{
		op:      "create event",
		method:  http.MethodPost,
		path:    "/calendars",
		body:    in,
		auth:    true,
		status:  http.StatusCreated,
		emptyOK: true,
	}, &raw)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return &Event{Title: in.Title, Description: in.Description, Start: in.Start, End: in.End}, nil
	}

	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, errors.NewMalformedResponseError("create event", err)
	}
	if ev.Title == "" {
		var wrapped struct {
			Event Event `json:"event"`
		}
		if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Event.Title != "" {
			ev = wrapped.Event
		}
	}
	return &ev, nil
}

// DeleteEvent removes an event.
func (c *Client) DeleteEvent(ctx context.Context, id ID) error {
	if id == "" {
		return errors.NewInvalidInputError("event id is required")
	}
	return c.do(ctx, request{
		op:     "delete event",
		method: http.MethodDelete,
		path:   "/calendars/" + escape(id),
		auth:   true,
	}, nil)
}
