package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/felixgeelhaar/attention/internal/session"
)

// recorded is one request seen by the fake backend.
type recorded struct {
	Method        string
	Path          string
	RawQuery      string
	Authorization string
	ContentType   string
	Body          []byte
}

// fakeBackend is an httptest server with per-route handlers that records
// every request it receives.
type fakeBackend struct {
	t      *testing.T
	server *httptest.Server

	mu       sync.Mutex
	requests []recorded
	routes   map[string]http.HandlerFunc
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	fb := &fakeBackend{t: t, routes: make(map[string]http.HandlerFunc)}
	fb.server = httptest.NewServer(http.HandlerFunc(fb.serve))
	t.Cleanup(fb.server.Close)
	return fb
}

func (fb *fakeBackend) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	fb.mu.Lock()
	fb.requests = append(fb.requests, recorded{
		Method:        r.Method,
		Path:          r.URL.Path,
		RawQuery:      r.URL.RawQuery,
		Authorization: r.Header.Get("Authorization"),
		ContentType:   r.Header.Get("Content-Type"),
		Body:          body,
	})
	h, ok := fb.routes[r.Method+" "+r.URL.Path]
	fb.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	h(w, r)
}

// on registers a handler for "METHOD /path".
func (fb *fakeBackend) on(route string, h http.HandlerFunc) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.routes[route] = h
}

// reply registers a JSON response for a route.
func (fb *fakeBackend) reply(route string, status int, body any) {
	fb.on(route, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, status, body)
	})
}

func (fb *fakeBackend) seen() []recorded {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]recorded(nil), fb.requests...)
}

func (fb *fakeBackend) last() recorded {
	fb.t.Helper()
	reqs := fb.seen()
	if len(reqs) == 0 {
		fb.t.Fatal("backend saw no requests")
	}
	return reqs[len(reqs)-1]
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// loggedIn returns a client whose store holds a session for user 7.
func loggedIn(fb *fakeBackend, opts ...Option) (*Client, *session.Writer) {
	store, writer := session.New()
	writer.Set(&session.Session{
		UserID:      "7",
		DisplayName: "Ana",
		Email:       "ana@attention.cl",
		Token:       "abc",
		CreatedAt:   time.Now(),
	})
	return NewClient(fb.server.URL, store, opts...), writer
}

type observation struct {
	Operation string
	Outcome   string
}

type fakeRecorder struct {
	mu  sync.Mutex
	obs []observation
}

func (r *fakeRecorder) ObserveRequest(operation, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.obs = append(r.obs, observation{operation, outcome})
}

func (r *fakeRecorder) all() []observation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]observation(nil), r.obs...)
}

func background() context.Context {
	return context.Background()
}
