package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hongminglow/deepsea-be/internal/apperr"
	"github.com/hongminglow/deepsea-be/internal/http/respond"
)

const readyTimeout = 2 * time.Second

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler returns uptime and readiness.
type HealthHandler struct {
	startedAt time.Time
	store     Pinger
	errs      *respond.Responder
}

// NewHealthHandler creates the health and readiness endpoints.
func NewHealthHandler(startedAt time.Time, store Pinger, errs *respond.Responder) *HealthHandler {
	return &HealthHandler{startedAt: startedAt, store: store, errs: errs}
}

// Register wires the handler into a router.
func (h *HealthHandler) Register(r chi.Router) {
	r.Get("/health", h.handleHealth)
	r.Get("/ready", h.handleReady)
}

func (h *HealthHandler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respond.JSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"uptime": time.Since(h.startedAt).Truncate(time.Second).String(),
	})
}

func (h *HealthHandler) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		respond.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		h.errs.Log(r, apperr.Wrap(apperr.Internal, "readiness ping", err))
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
