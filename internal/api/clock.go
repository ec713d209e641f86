package api

import (
	"context"
	"net/http"
)

// CheckIn is the open work-clock entry. LastCheckIn is "HH:mm:ss" or empty.
type CheckIn struct {
	LastCheckIn string `json:"lastCheckIn"`
}

// LastCheckIn returns the open check-in time, or "" when the clock is stopped.
func (c *Client) LastCheckIn(ctx context.Context) (string, error) {
	var ci CheckIn
	err := c.do(ctx, request{
		op:      "load last check-in",
		method:  http.MethodGet,
		path:    "/reloj-control/last-check-in",
		auth:    true,
		emptyOK: true,
	}, &ci)
	if err != nil {
		return "", err
	}
	return ci.LastCheckIn, nil
}

// StartClock opens a check-in. A failure carries the server's message.
func (c *Client) StartClock(ctx context.Context) error {
	return c.do(ctx, request{
		op:     "start clock",
		method: http.MethodPost,
		path:   "/reloj-control/start",
		auth:   true,
	}, nil)
}

// StopClock closes the open check-in.
func (c *Client) StopClock(ctx context.Context) error {
	return c.do(ctx, request{
		op:     "stop clock",
		method: http.MethodPost,
		path:   "/reloj-control/stop",
		auth:   true,
	}, nil)
}
