package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/fundsentinel/internal/modules/history"
	"github.com/aristath/fundsentinel/internal/modules/metrics"
	"github.com/aristath/fundsentinel/internal/modules/profile"
	"github.com/aristath/fundsentinel/internal/modules/recommendation"
	"github.com/aristath/fundsentinel/internal/modules/universe"
)

// InitializeRepositories creates all repositories over the container's database
func InitializeRepositories(container *Container, log zerolog.Logger) error {
	if container == nil || container.DB == nil {
		return fmt.Errorf("container database is not initialized")
	}
	conn := container.DB.Conn()

	container.FundRepo = universe.NewFundRepository(conn, log)
	container.HistoryRepo = history.NewRepository(conn, log)
	container.MetricsRepo = metrics.NewRepository(conn, log)
	container.ProfileRepo = profile.NewRepository(conn, log)
	container.RecommendationRepo = recommendation.NewRepository(conn, log)

	log.Debug().Msg("Repositories initialized")
	return nil
}
