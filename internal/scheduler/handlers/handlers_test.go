package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/fundsentinel/internal/domain"
	"github.com/aristath/fundsentinel/internal/modules/history"
	"github.com/aristath/fundsentinel/internal/modules/universe"
	"github.com/aristath/fundsentinel/internal/scheduler"
	testingpkg "github.com/aristath/fundsentinel/internal/testing"
)

type fakeRefresher struct {
	busy bool
}

func (f *fakeRefresher) Trigger() (string, error) {
	if f.busy {
		return "", domain.Conflict("refresh already in progress")
	}
	f.busy = true
	return "run-1", nil
}

func (f *fakeRefresher) Status() scheduler.Status {
	if f.busy {
		return scheduler.Status{State: scheduler.StateFetching, Running: true}
	}
	return scheduler.Status{State: scheduler.StateIdle}
}

func TestAdminEndpoints(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t)
	defer cleanup()
	logger := zerolog.Nop()

	id := testingpkg.InsertFund(t, db.Conn(), testingpkg.FundFixture{SchemeCode: "A", SchemeName: "A"})
	testingpkg.InsertPrices(t, db.Conn(), id,
		[]time.Time{testingpkg.Day(2026, time.May, 4), testingpkg.Day(2026, time.May, 5)}, []float64{1, 2})

	refresher := &fakeRefresher{}
	h := NewHandler(refresher, universe.NewFundRepository(db.Conn(), logger), history.NewRepository(db.Conn(), logger), logger)
	router := chi.NewRouter()
	router.Route("/api/admin", h.RegisterRoutes)

	do := func(method, path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
		return rec
	}

	rec := do(http.MethodGet, "/api/admin/status")
	require.Equal(t, http.StatusOK, rec.Code)
	var status StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, 1, status.Funds)
	assert.Equal(t, 2, status.Observations)
	require.NotNil(t, status.LatestNAVDate)
	assert.Equal(t, "2026-05-05", *status.LatestNAVDate)
	assert.Equal(t, scheduler.StateIdle, status.Refresh.State)

	rec = do(http.MethodPost, "/api/admin/refresh-data")
	require.Equal(t, http.StatusAccepted, rec.Code)
	var ack TriggerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ack))
	assert.Equal(t, "run-1", ack.RunID)

	assert.Equal(t, http.StatusConflict, do(http.MethodPost, "/api/admin/refresh-data").Code)

	rec = do(http.MethodGet, "/api/admin/status")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.True(t, status.Refresh.Running)
}
