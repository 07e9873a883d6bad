// Package admin implements the bridge's observability HTTP surface:
// Prometheus metrics, a liveness probe, and an optional debug view of
// recently forwarded notifications.
package admin

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pg-amqp-bridge/internal/binding"
)

// HealthReporter is satisfied by the supervisor.
type HealthReporter interface {
	Healthy() bool
	Bindings() []binding.Binding
}

// RecentCache is the subset of *recent.Cache the admin server needs.
// Declared here, rather than imported, so the server builds (and
// serves an empty result) when REDIS_ADDR is unset and Recent is nil.
type RecentCache interface {
	Recent(ctx context.Context, pgChannel string) ([]json.RawMessage, error)
}

// Handler wires the admin routes together.
type Handler struct {
	Health HealthReporter
	Recent RecentCache // nil when REDIS_ADDR is unset
}

// RegisterRoutes attaches every admin route to mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", h.healthz)
	mux.HandleFunc("GET /recent", h.recent)
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	if !h.Health.Healthy() {
		http.Error(w, "not all bindings have a live worker", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok\n"))
}

func (h *Handler) recent(w http.ResponseWriter, r *http.Request) {
	pgChannel := r.URL.Query().Get("channel")
	if pgChannel == "" {
		http.Error(w, "missing required query parameter: channel", http.StatusBadRequest)
		return
	}

	bound := false
	for _, b := range h.Health.Bindings() {
		if b.PgChannel == pgChannel {
			bound = true
			break
		}
	}
	if !bound {
		http.Error(w, "unknown pg_channel", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if h.Recent == nil {
		json.NewEncoder(w).Encode([]json.RawMessage{})
		return
	}

	entries, err := h.Recent.Recent(r.Context(), pgChannel)
	if err != nil {
		http.Error(w, "recent-activity cache error", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(entries)
}
