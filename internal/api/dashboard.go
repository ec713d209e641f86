package api

import (
	"context"
	"net/http"
)

// Metrics are the aggregate email response figures shown on the home screen.
type Metrics struct {
	TotalEmails                 int     `json:"totalEmails" yaml:"total_emails"`
	EmailsRespondedByGemini     int     `json:"emailsRespondedByGemini" yaml:"emails_responded_by_gemini"`
	EmailsRespondedByHuman      int     `json:"emailsRespondedByHuman" yaml:"emails_responded_by_human"`
	PercentageRespondedByGemini float64 `json:"percentageRespondedByGemini" yaml:"percentage_responded_by_gemini"`
	PercentageRespondedByHuman  float64 `json:"percentageRespondedByHuman" yaml:"percentage_responded_by_human"`
}

// Dashboard fetches the aggregate metrics.
func (c *Client) Dashboard(ctx context.Context) (*Metrics, error) {
	var m Metrics
	err := c.do(ctx, request{
		op:     "load dashboard",
		method: http.MethodGet,
		path:   "/dashboard",
		auth:   true,
	}, &m)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
