package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/fundsentinel/internal/api"
	"github.com/aristath/fundsentinel/internal/clients/oracle"
	"github.com/aristath/fundsentinel/internal/domain"
	"github.com/aristath/fundsentinel/internal/modules/profile"
	"github.com/aristath/fundsentinel/internal/modules/recommendation"
	"github.com/aristath/fundsentinel/internal/modules/universe"
	testingpkg "github.com/aristath/fundsentinel/internal/testing"
)

func setupRouter(t *testing.T) (http.Handler, *profile.Service, func()) {
	t.Helper()
	db, cleanup := testingpkg.NewTestDB(t)
	logger := zerolog.Nop()

	testingpkg.InsertFund(t, db.Conn(), testingpkg.FundFixture{SchemeCode: "AAA001", SchemeName: "Alpha", Category: "Equity"})

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	repo := recommendation.NewRepository(db.Conn(), logger)
	profiles := profile.NewService(db.Conn(), profile.NewRepository(db.Conn(), logger), repo, logger)
	svc := recommendation.NewService(repo, profiles, universe.NewFundRepository(db.Conn(), logger),
		oracle.NewClient(down.URL, time.Second, logger), nil, recommendation.Config{}, logger)

	router := chi.NewRouter()
	router.Route("/api", NewHandler(svc, logger).RegisterRoutes)
	return router, profiles, func() {
		down.Close()
		cleanup()
	}
}

func get(h http.Handler, path, user string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if user != "" {
		req.Header.Set(api.UserIDHeader, user)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRecommendationsEndpoints(t *testing.T) {
	router, profiles, cleanup := setupRouter(t)
	defer cleanup()

	assert.Equal(t, http.StatusUnauthorized, get(router, "/api/recommendations", "").Code)
	assert.Equal(t, http.StatusNotFound, get(router, "/api/recommendations", "u1").Code)

	_, _, err := profiles.Save(context.Background(), "u1", profile.Input{
		RiskProfile: "Aggressive", InvestmentHorizon: 10, BudgetType: "SIP",
		BudgetAmount: 1000, ExpenseRatioLimit: 1, InvestmentGoal: "Growth",
	})
	require.NoError(t, err)

	rec := get(router, "/api/recommendations", "u1")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body RecommendationsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, domain.SourceFallback, body.Source)
	require.Len(t, body.Recommendations, 1)
	assert.Equal(t, "AAA001", body.Recommendations[0].Fund.SchemeCode)

	rec = get(router, "/api/recommendations", "u1")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, domain.SourceCache, body.Source)

	rec = get(router, "/api/recommendations/history", "u1")
	require.Equal(t, http.StatusOK, rec.Code)
	var history HistoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Len(t, history.Sets, 1)
	assert.Equal(t, domain.SourceFallback, history.Sets[0].Source)
}
