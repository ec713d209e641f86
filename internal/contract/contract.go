// Package contract checks outgoing requests against the embedded OpenAPI
// description of the Attention backend.
package contract

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"

	"github.com/felixgeelhaar/attention/internal/errors"
)

//go:embed openapi.yaml
var specYAML []byte

func init() {
	for _, ct := range []string{"image/jpeg", "image/png", "image/gif", "image/webp"} {
		openapi3filter.RegisterBodyDecoder(ct, openapi3filter.FileBodyDecoder)
	}
}

// Document returns a fresh copy of the embedded OpenAPI document.
func Document(ctx context.Context) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(specYAML)
	if err != nil {
		return nil, fmt.Errorf("failed to load OpenAPI spec: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("invalid OpenAPI spec: %w", err)
	}
	return doc, nil
}

// Validator matches requests against the document.
type Validator struct {
	doc    *openapi3.T
	router routers.Router
}

// NewValidator builds a validator whose server is baseURL, so requests to
// a non-default backend (or a test server) still route.
func NewValidator(ctx context.Context, baseURL string) (*Validator, error) {
	doc, err := Document(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	doc.Servers = openapi3.Servers{{URL: strings.TrimRight(baseURL, "/")}}

	router, err := gorillamux.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to build router: %w", err)
	}
	return &Validator{doc: doc, router: router}, nil
}

// Operations lists "METHOD /path" for every documented operation.
func (v *Validator) Operations() []string {
	var ops []string
	for _, path := range v.doc.Paths.InMatchingOrder() {
		item := v.doc.Paths.Value(path)
		for method := range item.Operations() {
			ops = append(ops, method+" "+path)
		}
	}
	return ops
}

// Validate checks req. Client requests are read through GetBody and left
// untouched; server requests get their body buffered and replaced.
func (v *Validator) Validate(req *http.Request) error {
	check := req.Clone(req.Context())
	switch {
	case req.GetBody != nil:
		body, err := req.GetBody()
		if err != nil {
			return err
		}
		check.Body = body
	case req.Body != nil && req.Body != http.NoBody:
		data, err := io.ReadAll(req.Body)
		_ = req.Body.Close()
		if err != nil {
			return err
		}
		req.Body = io.NopCloser(bytes.NewReader(data))
		check.Body = io.NopCloser(bytes.NewReader(data))
	}

	route, pathParams, err := v.router.FindRoute(check)
	if err != nil {
		return violation(req, err)
	}

	input := &openapi3filter.RequestValidationInput{
		Request:    check,
		PathParams: pathParams,
		Route:      route,
		Options: &openapi3filter.Options{
			AuthenticationFunc: bearerPresent,
			MultiError:         true,
		},
	}
	if err := openapi3filter.ValidateRequest(req.Context(), input); err != nil {
		return violation(req, err)
	}
	return nil
}

func bearerPresent(_ context.Context, in *openapi3filter.AuthenticationInput) error {
	header := in.RequestValidationInput.Request.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return fmt.Errorf("missing bearer token")
	}
	return nil
}

func violation(req *http.Request, err error) error {
	return errors.Wrap(errors.ErrCodeContractViolation,
		fmt.Sprintf("%s %s does not match the API contract", req.Method, req.URL.Path), err).
		WithSuggestion("Disable the check with 'attention config set api.contract_check false' if the backend changed")
}

// Transport validates each request before handing it to Base.
type Transport struct {
	Base      http.RoundTripper
	Validator *Validator
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.Validator.Validate(req); err != nil {
		if req.Body != nil {
			_ = req.Body.Close()
		}
		return nil, err
	}
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}

// Middleware rejects requests that do not match the contract with 400.
// Tests use it to keep fake backends honest.
func (v *Validator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := v.Validate(r); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		next.ServeHTTP(w, r)
	})
}
