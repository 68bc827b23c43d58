// Package handlers provides the admin HTTP handlers for data refresh.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/fundsentinel/internal/api"
	"github.com/aristath/fundsentinel/internal/domain"
	"github.com/aristath/fundsentinel/internal/scheduler"
)

// Refresher starts refreshes and reports their progress
type Refresher interface {
	Trigger() (string, error)
	Status() scheduler.Status
}

// Counter counts catalog rows
type Counter interface {
	Count(ctx context.Context) (int, error)
}

// HistoryStats summarizes the stored time series
type HistoryStats interface {
	Count(ctx context.Context) (int, error)
	LatestDate(ctx context.Context) (*time.Time, error)
}

// Handler handles admin HTTP requests
type Handler struct {
	refresher Refresher
	funds     Counter
	history   HistoryStats
	log       zerolog.Logger
}

// NewHandler creates a new admin handler
func NewHandler(refresher Refresher, funds Counter, history HistoryStats, log zerolog.Logger) *Handler {
	return &Handler{
		refresher: refresher,
		funds:     funds,
		history:   history,
		log:       log.With().Str("handler", "admin").Logger(),
	}
}

// TriggerResponse acknowledges a background refresh
type TriggerResponse struct {
	RunID   string `json:"run_id"`
	Message string `json:"message"`
}

// StatusResponse is the body of GET /api/admin/status
type StatusResponse struct {
	LatestNAVDate *string          `json:"latest_nav_date"`
	Refresh       scheduler.Status `json:"refresh"`
	Funds         int              `json:"funds"`
	Observations  int              `json:"observations"`
}

// RegisterRoutes registers admin routes under /admin
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/refresh-data", h.HandleRefresh)
	r.Get("/status", h.HandleStatus)
}

// HandleRefresh handles POST /api/admin/refresh-data
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	runID, err := h.refresher.Trigger()
	if err != nil {
		api.WriteError(w, h.log, err)
		return
	}

	h.log.Info().Str("run_id", runID).Msg("Refresh triggered")
	api.WriteJSON(w, h.log, http.StatusAccepted, TriggerResponse{
		RunID:   runID,
		Message: "Data refresh started",
	})
}

// HandleStatus handles GET /api/admin/status
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	funds, err := h.funds.Count(ctx)
	if err != nil {
		api.WriteError(w, h.log, domain.Internal(err, "failed to count funds"))
		return
	}
	observations, err := h.history.Count(ctx)
	if err != nil {
		api.WriteError(w, h.log, domain.Internal(err, "failed to count observations"))
		return
	}
	latest, err := h.history.LatestDate(ctx)
	if err != nil {
		api.WriteError(w, h.log, domain.Internal(err, "failed to read latest observation date"))
		return
	}

	resp := StatusResponse{
		Refresh:      h.refresher.Status(),
		Funds:        funds,
		Observations: observations,
	}
	if latest != nil {
		s := latest.Format(domain.DateLayout)
		resp.LatestNAVDate = &s
	}
	api.WriteJSON(w, h.log, http.StatusOK, resp)
}
