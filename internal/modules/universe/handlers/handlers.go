// Package handlers provides HTTP handlers for the fund catalog.
package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/aristath/fundsentinel/internal/api"
	"github.com/aristath/fundsentinel/internal/domain"
	"github.com/aristath/fundsentinel/internal/modules/universe"
	"github.com/aristath/fundsentinel/internal/validation"
)

// NAV history window bounds, in days
const (
	defaultHistoryDays = 30
	maxHistoryDays     = 365
)

// NAVSource reads stored observations
type NAVSource interface {
	Range(ctx context.Context, fundID int64, since time.Time) ([]domain.PriceObservation, error)
}

// Handler handles fund catalog HTTP requests
type Handler struct {
	funds    *universe.FundRepository
	navs     NAVSource
	validate *validator.Validate
	log      zerolog.Logger
	now      func() time.Time
}

// NewHandler creates a new fund catalog handler
func NewHandler(funds *universe.FundRepository, navs NAVSource, log zerolog.Logger) *Handler {
	return &Handler{
		funds:    funds,
		navs:     navs,
		validate: validation.New(),
		log:      log.With().Str("handler", "funds").Logger(),
		now:      time.Now,
	}
}

// ListResponse is one page of the catalog
type ListResponse struct {
	Funds []domain.FundWithMetrics `json:"funds"`
	Total int                      `json:"total"`
	Page  int                      `json:"page"`
	Limit int                      `json:"limit"`
}

// NAVHistoryResponse carries a fund's observations, oldest first
type NAVHistoryResponse struct {
	Observations []domain.PriceObservation `json:"observations"`
	FundID       int64                     `json:"fund_id"`
	Days         int                       `json:"days"`
}

// CompareRequest is the body of POST /api/funds/compare
type CompareRequest struct {
	FundIDs []int64 `json:"fund_ids" validate:"required,min=2,max=5,unique"`
}

type navHistoryQuery struct {
	Days int `json:"days" validate:"gte=1,lte=365"`
}

// RegisterRoutes registers catalog routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/funds", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Get("/categories", h.HandleCategories)
		r.Post("/compare", h.HandleCompare)
		r.Get("/{id}", h.HandleGet)
		r.Get("/{id}/nav-history", h.HandleNAVHistory)
	})
}

// RegisterAdminRoutes registers catalog maintenance routes under /admin
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Patch("/funds/{id}", h.HandleSetAttributes)
}

// HandleList handles GET /api/funds
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := universe.FundQuery{
		Category: q.Get("category"),
		Search:   q.Get("search"),
		SortBy:   q.Get("sort_by"),
		Order:    q.Get("order"),
		Page:     queryInt(q.Get("page")),
		Limit:    queryInt(q.Get("limit")),
	}.Normalize()

	page, err := h.funds.List(r.Context(), query)
	if err != nil {
		api.WriteError(w, h.log, domain.Internal(err, "failed to list funds"))
		return
	}

	api.WriteJSON(w, h.log, http.StatusOK, ListResponse{
		Funds: page.Funds,
		Total: page.Total,
		Page:  query.Page,
		Limit: query.Limit,
	})
}

// HandleCategories handles GET /api/funds/categories
func (h *Handler) HandleCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.funds.Categories(r.Context())
	if err != nil {
		api.WriteError(w, h.log, domain.Internal(err, "failed to list categories"))
		return
	}
	api.WriteJSON(w, h.log, http.StatusOK, map[string]interface{}{"categories": categories})
}

// HandleGet handles GET /api/funds/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := fundID(r)
	if err != nil {
		api.WriteError(w, h.log, err)
		return
	}

	fund, err := h.funds.GetByID(r.Context(), id)
	if err != nil {
		api.WriteError(w, h.log, domain.Internal(err, "failed to load fund"))
		return
	}
	if fund == nil {
		api.WriteError(w, h.log, domain.NotFound("fund %d not found", id))
		return
	}
	api.WriteJSON(w, h.log, http.StatusOK, fund)
}

// HandleNAVHistory handles GET /api/funds/{id}/nav-history?days=N
func (h *Handler) HandleNAVHistory(w http.ResponseWriter, r *http.Request) {
	id, err := fundID(r)
	if err != nil {
		api.WriteError(w, h.log, err)
		return
	}

	query := navHistoryQuery{Days: defaultHistoryDays}
	if raw := r.URL.Query().Get("days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil {
			api.WriteError(w, h.log, domain.BadRequest("days must be an integer"))
			return
		}
		query.Days = days
	}
	if err := validation.Check(h.validate, query, "invalid nav history window"); err != nil {
		api.WriteError(w, h.log, err)
		return
	}

	fund, err := h.funds.GetByID(r.Context(), id)
	if err != nil {
		api.WriteError(w, h.log, domain.Internal(err, "failed to load fund"))
		return
	}
	if fund == nil {
		api.WriteError(w, h.log, domain.NotFound("fund %d not found", id))
		return
	}

	today := h.now().UTC().Truncate(24 * time.Hour)
	observations, err := h.navs.Range(r.Context(), id, today.AddDate(0, 0, -query.Days))
	if err != nil {
		api.WriteError(w, h.log, domain.Internal(err, "failed to load nav history"))
		return
	}

	api.WriteJSON(w, h.log, http.StatusOK, NAVHistoryResponse{
		Observations: observations,
		FundID:       id,
		Days:         query.Days,
	})
}

// HandleCompare handles POST /api/funds/compare
func (h *Handler) HandleCompare(w http.ResponseWriter, r *http.Request) {
	var req CompareRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.WriteError(w, h.log, err)
		return
	}
	if err := validation.Check(h.validate, req, "invalid comparison"); err != nil {
		api.WriteError(w, h.log, err)
		return
	}

	funds, err := h.funds.GetByIDs(r.Context(), req.FundIDs)
	if err != nil {
		api.WriteError(w, h.log, domain.Internal(err, "failed to load funds"))
		return
	}
	if len(funds) != len(req.FundIDs) {
		found := make(map[int64]bool, len(funds))
		for _, f := range funds {
			found[f.ID] = true
		}
		var missing []int64
		for _, id := range req.FundIDs {
			if !found[id] {
				missing = append(missing, id)
			}
		}
		api.WriteError(w, h.log, domain.NotFound("funds not found").WithDetail("fund_ids", missing))
		return
	}

	api.WriteJSON(w, h.log, http.StatusOK, map[string]interface{}{"funds": funds})
}

// HandleSetAttributes handles PATCH /api/admin/funds/{id}
func (h *Handler) HandleSetAttributes(w http.ResponseWriter, r *http.Request) {
	id, err := fundID(r)
	if err != nil {
		api.WriteError(w, h.log, err)
		return
	}

	var attrs universe.FundAttributes
	if err := api.DecodeJSON(r, &attrs); err != nil {
		api.WriteError(w, h.log, err)
		return
	}
	if attrs.Empty() {
		api.WriteError(w, h.log, domain.BadRequest("no attributes to update"))
		return
	}
	if err := validation.Check(h.validate, attrs, "invalid fund attributes"); err != nil {
		api.WriteError(w, h.log, err)
		return
	}

	ok, err := h.funds.SetAttributes(r.Context(), id, attrs)
	if err != nil {
		api.WriteError(w, h.log, domain.Internal(err, "failed to update fund"))
		return
	}
	if !ok {
		api.WriteError(w, h.log, domain.NotFound("fund %d not found", id))
		return
	}

	h.log.Info().Int64("fund_id", id).Msg("Updated fund attributes")

	fund, err := h.funds.GetByID(r.Context(), id)
	if err != nil {
		api.WriteError(w, h.log, domain.Internal(err, "failed to load fund"))
		return
	}
	api.WriteJSON(w, h.log, http.StatusOK, fund)
}

func fundID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.BadRequest("invalid fund id")
	}
	return id, nil
}

func queryInt(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}
