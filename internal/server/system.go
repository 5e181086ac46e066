package server

import (
	"context"
	"net/http"
	"time"
)

// Pinger reports store reachability for health checks. Implemented by
// [store.Store].
type Pinger interface {
	Ping(ctx context.Context) error
}

// SystemHandler serves the root greeting and the health endpoint.
// Implements the [Handler] interface for registration with a [Router].
type SystemHandler struct {
	store Pinger
}

// NewSystemHandler creates a new [SystemHandler].
func NewSystemHandler(store Pinger) *SystemHandler {
	return &SystemHandler{store: store}
}

// Routes returns the HTTP routes this handler serves.
func (h *SystemHandler) Routes() []string {
	return []string{"/", "/health"}
}

// ServeHTTP serves the greeting and health endpoints.
func (h *SystemHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	switch r.URL.Path {
	case "/":
		writeJSON(w, http.StatusOK, map[string]string{"message": "Welcome to Statify!"})
	case "/health":
		h.health(w, r)
	default:
		http.NotFound(w, r)
	}
}

// health pings the session store and reports service status.
func (h *SystemHandler) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "store": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
