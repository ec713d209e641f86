package metrics

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewRegistryIsolated(t *testing.T) {
	reg1, m1 := NewRegistry()
	reg2, _ := NewRegistry()

	m1.ObserveRequest("load dashboard", "ok", time.Millisecond)

	families, err := reg2.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	for _, f := range families {
		if f.GetName() == "attention_api_requests_total" {
			t.Error("metrics leaked between registries")
		}
	}

	families, err = reg1.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	if len(families) == 0 {
		t.Error("expected gathered metric families")
	}
}

func TestHandlerFor(t *testing.T) {
	reg, m := NewRegistry()
	m.RecordSessionEvent("login")

	rec := httptest.NewRecorder()
	HandlerFor(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `attention_session_events_total{event="login"} 1`) {
		t.Errorf("expected session event in output, got:\n%s", rec.Body.String())
	}
}

func TestWriteTextfile(t *testing.T) {
	reg, m := NewRegistry()
	m.ObserveRequest("send message", "rejected", 10*time.Millisecond)

	path := filepath.Join(t.TempDir(), "nested", "attention.prom")
	if err := WriteTextfile(reg, path); err != nil {
		t.Fatalf("WriteTextfile failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	want := `attention_api_requests_total{operation="send message",outcome="rejected"} 1`
	if !strings.Contains(string(data), want) {
		t.Errorf("expected %q in textfile, got:\n%s", want, data)
	}
}
