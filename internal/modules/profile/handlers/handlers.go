// Package handlers provides HTTP handlers for user profiles.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/fundsentinel/internal/api"
	"github.com/aristath/fundsentinel/internal/modules/profile"
)

// Handler handles profile HTTP requests
type Handler struct {
	service *profile.Service
	log     zerolog.Logger
}

// NewHandler creates a new profile handler
func NewHandler(service *profile.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "profile").Logger(),
	}
}

// RegisterRoutes registers profile routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/profile", func(r chi.Router) {
		r.Post("/", h.HandleSave)
		r.Get("/", h.HandleGet)
		r.Put("/", h.HandlePatch)
	})
}

// HandleSave handles POST /api/profile
func (h *Handler) HandleSave(w http.ResponseWriter, r *http.Request) {
	userID, err := api.UserID(r)
	if err != nil {
		api.WriteError(w, h.log, err)
		return
	}

	var in profile.Input
	if err := api.DecodeJSON(r, &in); err != nil {
		api.WriteError(w, h.log, err)
		return
	}

	p, created, err := h.service.Save(r.Context(), userID, in)
	if err != nil {
		api.WriteError(w, h.log, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	api.WriteJSON(w, h.log, status, p)
}

// HandleGet handles GET /api/profile
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, err := api.UserID(r)
	if err != nil {
		api.WriteError(w, h.log, err)
		return
	}

	p, err := h.service.Get(r.Context(), userID)
	if err != nil {
		api.WriteError(w, h.log, err)
		return
	}
	api.WriteJSON(w, h.log, http.StatusOK, p)
}

// HandlePatch handles PUT /api/profile
func (h *Handler) HandlePatch(w http.ResponseWriter, r *http.Request) {
	userID, err := api.UserID(r)
	if err != nil {
		api.WriteError(w, h.log, err)
		return
	}

	var patch profile.Patch
	if err := api.DecodeJSON(r, &patch); err != nil {
		api.WriteError(w, h.log, err)
		return
	}

	p, err := h.service.Patch(r.Context(), userID, patch)
	if err != nil {
		api.WriteError(w, h.log, err)
		return
	}
	api.WriteJSON(w, h.log, http.StatusOK, p)
}
