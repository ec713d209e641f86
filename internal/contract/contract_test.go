package contract

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/attention/internal/api"
	"github.com/felixgeelhaar/attention/internal/errors"
	"github.com/felixgeelhaar/attention/internal/session"
)

func TestDocument(t *testing.T) {
	doc, err := Document(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Attention API", doc.Info.Title)
	assert.Equal(t, "https://attention.cl/api", doc.Servers[0].URL)
}

func TestValidator_Operations(t *testing.T) {
	v, err := NewValidator(context.Background(), api.DefaultBaseURL)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{
		"POST /login",
		"GET /dashboard",
		"GET /calendars",
		"POST /calendars",
		"DELETE /calendars/{id}",
		"GET /emails",
		"POST /emails/{id}/updateStatus",
		"POST /emails/send",
		"GET /contacts",
		"POST /messages/fetch",
		"POST /messages/send",
		"GET /messages/unread",
		"GET /reloj-control/last-check-in",
		"POST /reloj-control/start",
		"POST /reloj-control/stop",
	}, v.Operations())
}

// cannedBackend answers every documented operation with a minimal valid body.
func cannedBackend() http.Handler {
	mux := http.NewServeMux()
	js := func(status int, body string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = w.Write([]byte(body))
		}
	}
	mux.Handle("POST /login", js(200, `{"token":"abc","user":{"id":7,"name":"Ana"}}`))
	mux.Handle("GET /dashboard", js(200, `{"totalEmails":1}`))
	mux.Handle("GET /calendars", js(200, `[]`))
	mux.Handle("POST /calendars", js(201, `{"id":1,"title":"t"}`))
	mux.Handle("DELETE /calendars/{id}", js(200, `{}`))
	mux.Handle("GET /emails", js(200, `[{"id":1,"from":"c@x","subject":"s","body":"b"}]`))
	mux.Handle("POST /emails/{id}/updateStatus", js(200, `{}`))
	mux.Handle("POST /emails/send", js(200, `{}`))
	mux.Handle("GET /contacts", js(200, `[{"id":7},{"id":8}]`))
	mux.Handle("POST /messages/fetch", js(200, `{"messages":[]}`))
	mux.Handle("POST /messages/send", js(200, `{"message_data":{"from_id":7,"body":"hola"}}`))
	mux.Handle("GET /messages/unread", js(200, `{"cantidad":2}`))
	mux.Handle("GET /reloj-control/last-check-in", js(200, `{"lastCheckIn":"08:00:00"}`))
	mux.Handle("POST /reloj-control/start", js(200, `{}`))
	mux.Handle("POST /reloj-control/stop", js(200, `{}`))
	return mux
}

// TestClientConformsToContract drives every client operation through both
// the validating transport and a validating server.
func TestClientConformsToContract(t *testing.T) {
	ctx := context.Background()

	var v *Validator
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v.Middleware(cannedBackend()).ServeHTTP(w, r)
	}))
	defer server.Close()

	var err error
	v, err = NewValidator(ctx, server.URL)
	require.NoError(t, err)

	store, writer := session.New()
	client := api.NewClient(server.URL, store, api.WithTransport(&Transport{Validator: v}))
	auth := api.NewAuthenticator(client, writer, nil)

	_, err = auth.Login(ctx, "ana@attention.cl", "pw")
	require.NoError(t, err)

	steps := []struct {
		name string
		call func() error
	}{
		{"dashboard", func() error { _, err := client.Dashboard(ctx); return err }},
		{"list events", func() error { _, err := client.ListEvents(ctx); return err }},
		{"create event", func() error {
			_, err := client.CreateEvent(ctx, api.EventInput{Title: "t", Start: "2024-01-01T10:00:00Z", End: "2024-01-01T11:00:00Z"})
			return err
		}},
		{"delete event", func() error { return client.DeleteEvent(ctx, "1") }},
		{"list emails", func() error { _, err := client.ListEmails(ctx, api.FilterToBeAnswered); return err }},
		{"update status", func() error { return client.UpdateEmailStatus(ctx, "1", "read") }},
		{"reply", func() error { _, err := client.SendReply(ctx, api.Email{From: "c@x", Subject: "s"}, "ok"); return err }},
		{"contacts", func() error { _, err := client.ListContacts(ctx); return err }},
		{"fetch messages", func() error { _, err := client.FetchMessages(ctx, "8"); return err }},
		{"send text", func() error { _, err := client.SendMessage(ctx, "8", "hola", nil); return err }},
		{"send image", func() error {
			_, err := client.SendMessage(ctx, "8", "", &api.Attachment{Name: "p.jpg", ContentType: "image/jpeg", Data: bytes.NewReader([]byte{0xff, 0xd8})})
			return err
		}},
		{"unread", func() error { _, err := client.Unread(ctx); return err }},
		{"last check-in", func() error { _, err := client.LastCheckIn(ctx); return err }},
		{"start", func() error { return client.StartClock(ctx) }},
		{"stop", func() error { return client.StopClock(ctx) }},
	}

	for _, step := range steps {
		t.Run(step.name, func(t *testing.T) {
			assert.NoError(t, step.call())
		})
	}
}

func TestValidator_Violations(t *testing.T) {
	v, err := NewValidator(context.Background(), "http://backend.test/api")
	require.NoError(t, err)

	tests := []struct {
		name  string
		build func() *http.Request
	}{
		{"unknown path", func() *http.Request {
			return authed(httptest.NewRequest(http.MethodGet, "http://backend.test/api/nope", nil))
		}},
		{"wrong method", func() *http.Request {
			return authed(httptest.NewRequest(http.MethodPut, "http://backend.test/api/dashboard", nil))
		}},
		{"missing bearer", func() *http.Request {
			return httptest.NewRequest(http.MethodGet, "http://backend.test/api/dashboard", nil)
		}},
		{"unknown filter", func() *http.Request {
			return authed(httptest.NewRequest(http.MethodGet, "http://backend.test/api/emails?filter=spam", nil))
		}},
		{"event without title", func() *http.Request {
			return authed(jsonRequest(http.MethodPost, "http://backend.test/api/calendars", `{"start":"a","end":"b"}`))
		}},
		{"reply without body", func() *http.Request {
			return authed(jsonRequest(http.MethodPost, "http://backend.test/api/emails/send", `{"from":"a","to":"b","subject":"s","body":""}`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.build())
			require.Error(t, err)
			assert.Equal(t, errors.ErrCodeContractViolation, errors.CodeOf(err))
		})
	}
}

func TestValidator_LoginNeedsNoBearer(t *testing.T) {
	v, err := NewValidator(context.Background(), "http://backend.test/api")
	require.NoError(t, err)

	req := jsonRequest(http.MethodPost, "http://backend.test/api/login", `{"email":"a@b","password":"x"}`)
	assert.NoError(t, v.Validate(req))
}

func TestTransport_BlocksViolations(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer server.Close()

	v, err := NewValidator(context.Background(), server.URL)
	require.NoError(t, err)

	hc := &http.Client{Transport: &Transport{Validator: v}}
	resp, err := hc.Get(server.URL + "/dashboard")
	if resp != nil {
		_ = resp.Body.Close()
	}
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeContractViolation, errors.CodeOf(err))
	assert.Zero(t, hits)
}

func TestMiddleware_PreservesBody(t *testing.T) {
	v, err := NewValidator(context.Background(), "http://backend.test/api")
	require.NoError(t, err)

	var got []byte
	h := v.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = io.ReadAll(r.Body)
	}))

	req := authed(jsonRequest(http.MethodPost, "http://backend.test/api/messages/fetch", `{"id":8}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":8}`, string(got))
}

func TestMiddleware_RejectsViolations(t *testing.T) {
	v, err := NewValidator(context.Background(), "http://backend.test/api")
	require.NoError(t, err)

	called := false
	h := v.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://backend.test/api/contacts", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, called)
}

func authed(r *http.Request) *http.Request {
	r.Header.Set("Authorization", "Bearer abc")
	return r
}

func jsonRequest(method, target, body string) *http.Request {
	r := httptest.NewRequest(method, target, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	return r
}
