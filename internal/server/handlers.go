package server

import (
	"net/http"
	"time"

	"github.com/aristath/fundsentinel/internal/api"
)

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	code := http.StatusOK
	if err := s.container.DB.QuickCheck(r.Context()); err != nil {
		s.log.Error().Err(err).Msg("Health check failed")
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	api.WriteJSON(w, s.log, code, map[string]interface{}{
		"status":    status,
		"service":   "fundsentinel",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
