// Package handlers provides HTTP handlers for recommendations.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/fundsentinel/internal/api"
	"github.com/aristath/fundsentinel/internal/domain"
	"github.com/aristath/fundsentinel/internal/modules/recommendation"
)

// Handler handles recommendation HTTP requests
type Handler struct {
	service *recommendation.Service
	log     zerolog.Logger
}

// NewHandler creates a new recommendation handler
func NewHandler(service *recommendation.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "recommendations").Logger(),
	}
}

// RecommendationsResponse is the body of GET /api/recommendations
type RecommendationsResponse struct {
	Source          domain.RecommendationSource `json:"source"`
	Recommendations []recommendation.Enriched   `json:"recommendations"`
}

// HistoryResponse is the body of GET /api/recommendations/history
type HistoryResponse struct {
	Sets []recommendation.EnrichedSet `json:"sets"`
}

// RegisterRoutes registers recommendation routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/recommendations", func(r chi.Router) {
		r.Get("/", h.HandleGet)
		r.Get("/history", h.HandleHistory)
	})
}

// HandleGet handles GET /api/recommendations
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, err := api.UserID(r)
	if err != nil {
		api.WriteError(w, h.log, err)
		return
	}

	recs, source, err := h.service.Get(r.Context(), userID)
	if err != nil {
		api.WriteError(w, h.log, err)
		return
	}
	api.WriteJSON(w, h.log, http.StatusOK, RecommendationsResponse{Source: source, Recommendations: recs})
}

// HandleHistory handles GET /api/recommendations/history
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	userID, err := api.UserID(r)
	if err != nil {
		api.WriteError(w, h.log, err)
		return
	}

	sets, err := h.service.History(r.Context(), userID)
	if err != nil {
		api.WriteError(w, h.log, err)
		return
	}
	api.WriteJSON(w, h.log, http.StatusOK, HistoryResponse{Sets: sets})
}
