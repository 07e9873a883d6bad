package admin

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"pg-amqp-bridge/internal/binding"
)

type fakeHealth struct {
	healthy  bool
	bindings []binding.Binding
}

func (f fakeHealth) Healthy() bool               { return f.healthy }
func (f fakeHealth) Bindings() []binding.Binding { return f.bindings }

func TestHealthzReturns503WhenNotHealthy(t *testing.T) {
	h := &Handler{Health: fakeHealth{healthy: false}}
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestHealthzReturns200WhenHealthy(t *testing.T) {
	h := &Handler{Health: fakeHealth{healthy: true}}
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestRecentUnknownChannelIs404(t *testing.T) {
	h := &Handler{Health: fakeHealth{bindings: []binding.Binding{{PgChannel: "c1"}}}}
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/recent?channel=unknown", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestRecentWithoutCacheReturnsEmptyArray(t *testing.T) {
	h := &Handler{Health: fakeHealth{bindings: []binding.Binding{{PgChannel: "c1"}}}}
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/recent?channel=c1", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got := rec.Body.String(); got != "[]\n" {
		t.Errorf("body = %q, want %q", got, "[]\n")
	}
}
