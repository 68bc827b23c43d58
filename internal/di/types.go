/**
 * Package di provides dependency injection type definitions.
 *
 * The Container holds every long-lived component of the service. It is
 * built once by Wire() and handed to the HTTP server and main.
 */
package di

import (
	"github.com/aristath/fundsentinel/internal/clients/navfeed"
	"github.com/aristath/fundsentinel/internal/clients/oracle"
	"github.com/aristath/fundsentinel/internal/database"
	"github.com/aristath/fundsentinel/internal/instrument"
	"github.com/aristath/fundsentinel/internal/modules/history"
	"github.com/aristath/fundsentinel/internal/modules/metrics"
	"github.com/aristath/fundsentinel/internal/modules/profile"
	"github.com/aristath/fundsentinel/internal/modules/recommendation"
	"github.com/aristath/fundsentinel/internal/modules/universe"
	"github.com/aristath/fundsentinel/internal/scheduler"
)

// Container holds all dependencies for the application
type Container struct {
	// Database
	DB *database.DB

	// Observability
	Metrics *instrument.Metrics

	// Clients
	FeedClient   *navfeed.Client
	OracleClient *oracle.Client

	// Repositories
	FundRepo           *universe.FundRepository
	HistoryRepo        *history.Repository
	MetricsRepo        *metrics.Repository
	ProfileRepo        *profile.Repository
	RecommendationRepo *recommendation.Repository

	// Services
	HistoryWriter         *history.Writer
	MetricsEngine         *metrics.Engine
	ProfileService        *profile.Service
	RecommendationService *recommendation.Service

	// Jobs
	RefreshJob     *scheduler.RefreshJob
	MaintenanceJob *scheduler.MaintenanceJob
	Scheduler      *scheduler.Scheduler
}

// Close stops background work and releases the database
func (c *Container) Close() error {
	// Cancel an in-flight refresh first; cron's Stop waits for running jobs
	if c.RefreshJob != nil {
		c.RefreshJob.Shutdown()
	}
	if c.Scheduler != nil {
		c.Scheduler.Stop()
	}
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
