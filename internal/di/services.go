package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/fundsentinel/internal/clients/navfeed"
	"github.com/aristath/fundsentinel/internal/clients/oracle"
	"github.com/aristath/fundsentinel/internal/config"
	"github.com/aristath/fundsentinel/internal/instrument"
	"github.com/aristath/fundsentinel/internal/modules/history"
	"github.com/aristath/fundsentinel/internal/modules/metrics"
	"github.com/aristath/fundsentinel/internal/modules/profile"
	"github.com/aristath/fundsentinel/internal/modules/recommendation"
	"github.com/aristath/fundsentinel/internal/scheduler"
)

// InitializeServices creates clients, services and the refresh job
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil || container.FundRepo == nil {
		return fmt.Errorf("repositories are not initialized")
	}
	conn := container.DB.Conn()

	container.Metrics = instrument.New()

	container.FeedClient = navfeed.NewClient(cfg.Feed.URL, cfg.Feed.Timeout, log)
	container.OracleClient = oracle.NewClient(cfg.Oracle.BaseURL, cfg.Oracle.Timeout, log)

	container.HistoryWriter = history.NewWriter(conn, container.FundRepo, log)
	container.MetricsEngine = metrics.NewEngine(
		container.HistoryRepo,
		container.MetricsRepo,
		cfg.Metrics.BatchSize,
		cfg.Metrics.Concurrency,
		log,
	)

	container.ProfileService = profile.NewService(conn, container.ProfileRepo, container.RecommendationRepo, log)
	container.RecommendationService = recommendation.NewService(
		container.RecommendationRepo,
		container.ProfileRepo,
		container.FundRepo,
		container.OracleClient,
		container.Metrics,
		recommendation.Config{
			Policy:        recommendation.ExpensePolicy(cfg.Ranking.ExpensePolicy),
			TopK:          cfg.Ranking.TopK,
			UniverseLimit: cfg.Ranking.UniverseLimit,
			HistoryLimit:  cfg.Ranking.HistoryLimit,
		},
		log,
	)

	container.RefreshJob = scheduler.NewRefreshJob(
		container.FeedClient,
		container.FundRepo,
		container.HistoryWriter,
		container.MetricsEngine,
		container.Metrics,
		log,
	)

	log.Debug().Msg("Services initialized")
	return nil
}
