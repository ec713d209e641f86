// Package api is the single request-wrapping layer between commands and the
// Attention backend. Every authenticated call reads the bearer token from the
// session store at call time and refuses to send when nobody is logged in.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/felixgeelhaar/attention/internal/errors"
	"github.com/felixgeelhaar/attention/internal/log"
	"github.com/felixgeelhaar/attention/internal/session"
)

// DefaultBaseURL is the production backend.
const DefaultBaseURL = "https://attention.cl/api"

// DefaultTimeout bounds a single request.
const DefaultTimeout = 30 * time.Second

const tracerName = "github.com/felixgeelhaar/attention/internal/api"

// ID is an opaque backend identifier (number or string on the wire).
type ID = session.ID

// Recorder receives one observation per request attempt.
type Recorder interface {
	ObserveRequest(operation, outcome string, duration time.Duration)
}

// Request outcomes reported to the Recorder.
const (
	OutcomeOK           = "ok"
	OutcomeNoSession    = "no_session"
	OutcomeNetwork      = "network_error"
	OutcomeUnauthorized = "unauthorized"
	OutcomeRejected     = "rejected"
	OutcomeMalformed    = "malformed"
	OutcomeContract     = "contract_violation"
)

// Client talks to the Attention backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	store      *session.Store
	logger     *log.Logger
	recorder   Recorder
	tracer     trace.Tracer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout; zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithTransport wraps or replaces the HTTP transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.httpClient.Transport = rt }
}

func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func WithRecorder(r Recorder) Option {
	return func(c *Client) { c.recorder = r }
}

// NewClient creates a client reading its token from store.
func NewClient(baseURL string, store *session.Store, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		store:  store,
		logger: log.Nop(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend root without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Store returns the session store the client reads from.
func (c *Client) Store() *session.Store {
	return c.store
}

// request describes one backend call.
type request struct {
	// op names the operation in errors: "could not <op>".
	op     string
	method string
	path   string
	query  url.Values

	// body is JSON-encoded unless raw is set.
	body        any
	raw         io.Reader
	contentType string

	auth bool

	// credentials marks the login call: a 400/401/403/422 means wrong
	// credentials rather than a failing backend.
	credentials bool

	// status is the only accepted status when non-zero; otherwise any 2xx.
	status int

	// emptyOK accepts an empty success body and leaves out untouched.
	emptyOK bool
}

// response is what do hands back after the status checks passed.
type response struct {
	status int
	body   []byte
}

// ErrorResponse is the backend's error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (e ErrorResponse) detail() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}

// do performs req and decodes a successful body into out (when non-nil).
func (c *Client) do(ctx context.Context, req request, out any) (err error) {
	start := time.Now()
	outcome := OutcomeOK
	defer func() {
		if c.recorder != nil {
			c.recorder.ObserveRequest(req.op, outcome, time.Since(start))
		}
	}()

	var token string
	if req.auth {
		token = c.store.Token()
		if token == "" {
			outcome = OutcomeNoSession
			c.logger.DebugContext(ctx, "refusing unauthenticated request", "operation", req.op)
			return errors.NewSessionMissingError(req.op)
		}
	}

	ctx, span := c.tracer.Start(ctx, "attention.api "+req.op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("attention.operation", req.op),
			attribute.String("http.request.method", req.method),
			attribute.String("url.path", req.path),
		))
	defer func() {
		span.SetAttributes(attribute.String("attention.outcome", outcome))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
		span.End()
	}()

	httpReq, err := c.newHTTPRequest(ctx, req, token)
	if err != nil {
		outcome = OutcomeNetwork
		return errors.NewNetworkError(req.op, err)
	}

	logger := c.logger.WithContext(ctx).With("operation", req.op, "method", req.method, "path", req.path)
	if token != "" {
		logger = logger.With("token_fp", session.Fingerprint(token))
	}
	logger.Debug("sending request")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if attErr, ok := errors.As(err); ok {
			if attErr.Code == errors.ErrCodeContractViolation {
				outcome = OutcomeContract
			} else {
				outcome = OutcomeNetwork
			}
			return errors.Wrap(attErr.Code, fmt.Sprintf("could not %s", req.op), attErr)
		}
		outcome = OutcomeNetwork
		logger.Debug("request failed", "error", err)
		return errors.NewNetworkError(req.op, err)
	}

	parsed, err := c.readResponse(req, resp)
	if err != nil {
		switch errors.CodeOf(err) {
		case errors.ErrCodeUnauthorized, errors.ErrCodeInvalidCredentials:
			outcome = OutcomeUnauthorized
		case errors.ErrCodeNetwork:
			outcome = OutcomeNetwork
		default:
			outcome = OutcomeRejected
		}
		logger.Debug("request rejected", "status", resp.StatusCode)
		return err
	}
	span.SetAttributes(attribute.Int("http.response.status_code", parsed.status))
	logger.Debug("request completed", "status", parsed.status)

	if out == nil || (req.emptyOK && len(bytes.TrimSpace(parsed.body)) == 0) {
		return nil
	}
	if err := decodeJSON(parsed.body, out); err != nil {
		outcome = OutcomeMalformed
		return errors.NewMalformedResponseError(req.op, err)
	}
	return nil
}

func (c *Client) newHTTPRequest(ctx context.Context, req request, token string) (*http.Request, error) {
	u := c.baseURL + req.path
	if len(req.query) > 0 {
		u += "?" + req.query.Encode()
	}

	var body io.Reader
	contentType := req.contentType
	switch {
	case req.raw != nil:
		body = req.raw
	case req.body != nil:
		data, err := json.Marshal(req.body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	return httpReq, nil
}

func (c *Client) readResponse(req request, resp *http.Response) (*response, error) {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewNetworkError(req.op, err)
	}

	if resp.StatusCode == http.StatusUnauthorized && req.auth {
		return nil, errors.NewUnauthorizedError(req.op)
	}
	if req.credentials {
		switch resp.StatusCode {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusUnprocessableEntity:
			return nil, errors.NewInvalidCredentialsError()
		}
	}

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if req.status != 0 {
		ok = resp.StatusCode == req.status
	}
	if !ok {
		var errResp ErrorResponse
		_ = json.Unmarshal(body, &errResp)
		return nil, errors.NewRejectedError(req.op, resp.StatusCode, errResp.detail())
	}

	return &response{status: resp.StatusCode, body: body}, nil
}

func decodeJSON(body []byte, out any) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return fmt.Errorf("empty response body")
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func escape(id ID) string {
	return url.PathEscape(id.String())
}
