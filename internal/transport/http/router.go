// Package httptransport is the thin operational HTTP layer: health, metrics,
// and the manual sync trigger. It delegates to the orchestrator without
// embedding sync logic.
package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/samply/directory-sync-service-sub000/internal/orchestrator"
)

// Runner starts one synchronization run.
type Runner interface {
	Run(ctx context.Context) (orchestrator.Result, error)
}

// Handler serves the operational endpoints. It tracks the last run so
// operators can poll the outcome of an asynchronous trigger.
type Handler struct {
	runner Runner
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	last    *orchestrator.Result
	lastErr string
}

// NewHandler wires the handler.
func NewHandler(runner Runner, logger *slog.Logger) *Handler {
	return &Handler{runner: runner, logger: logger}
}

// NewRouter wires all operational endpoints.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Post("/sync", h.handleSync)
	r.Get("/sync/status", h.handleSyncStatus)
	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSync starts a run in the background. A second trigger while a run is
// in flight gets 409 without touching the orchestrator.
func (h *Handler) handleSync(w http.ResponseWriter, _ *http.Request) {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		writeJSON(w, http.StatusConflict, map[string]string{"error": "sync already in progress"})
		return
	}
	h.running = true
	h.mu.Unlock()

	go func() {
		// The run must outlive the triggering request.
		result, err := h.runner.Run(context.Background())

		h.mu.Lock()
		h.running = false
		h.last = &result
		h.lastErr = ""
		if err != nil {
			h.lastErr = err.Error()
		}
		h.mu.Unlock()
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func (h *Handler) handleSyncStatus(w http.ResponseWriter, _ *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	resp := map[string]any{"running": h.running}
	if h.last != nil {
		resp["last_run"] = h.last
	}
	if h.lastErr != "" {
		resp["last_error"] = h.lastErr
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
