// Package main is the entry point for the fund NAV ingestion and
// recommendation service.
//
// The service downloads the daily NAV feed, reconciles the fund catalog,
// appends the price history, computes per-fund metrics, and serves ranked
// fund recommendations for each user's profile.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/fundsentinel/internal/config"
	"github.com/aristath/fundsentinel/internal/di"
	"github.com/aristath/fundsentinel/internal/server"
	"github.com/aristath/fundsentinel/pkg/logger"
)

// main orchestrates the startup sequence:
// 1. Loads configuration from environment variables (.env supported)
// 2. Initializes logging
// 3. Wires all dependencies (database, repositories, services, jobs)
// 4. Starts the daily refresh scheduler
// 5. Starts the HTTP server
// 6. Waits for a shutdown signal and shuts down gracefully
func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:   cfg.LogLevel,
		Pretty:  cfg.DevMode,
		Service: "fundsentinel",
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Str("data_dir", cfg.DataDir).
		Str("feed_url", cfg.Feed.URL).
		Str("oracle_url", cfg.Oracle.BaseURL).
		Msg("Starting fund service")

	container, err := di.Wire(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}

	// Daily refresh at REFRESH_TIME in REFRESH_TIMEZONE
	container.Scheduler.Start()
	if cfg.Refresh.Enabled {
		log.Info().
			Str("time", cfg.Refresh.Time).
			Str("timezone", cfg.Refresh.Timezone).
			Msg("Daily refresh scheduled")
	}

	srv := server.New(server.Config{
		Log:       log,
		Container: container,
		Port:      cfg.Port,
		DevMode:   cfg.DevMode,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Fund service started")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Stop accepting requests first, then stop the scheduler and cancel a
	// refresh in flight; the database is closed last.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	if err := container.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close container")
	}

	log.Info().Msg("Server stopped")
}
