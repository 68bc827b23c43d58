package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/fundsentinel/internal/config"
	"github.com/aristath/fundsentinel/internal/scheduler"
)

// maintenanceSchedule runs the store check off-peak, away from the refresh
const maintenanceSchedule = "30 3 * * *"

// RegisterJobs creates the scheduler and registers the daily refresh and
// database maintenance. The scheduler is not started here.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil || container.RefreshJob == nil {
		return fmt.Errorf("refresh job is not initialized")
	}

	loc, err := cfg.Refresh.Location()
	if err != nil {
		return err
	}
	container.Scheduler = scheduler.New(loc, log)

	container.MaintenanceJob = scheduler.NewMaintenanceJob(container.DB.Conn(), log)
	if err := container.Scheduler.AddJob(maintenanceSchedule, container.MaintenanceJob); err != nil {
		return fmt.Errorf("failed to register maintenance job: %w", err)
	}

	if !cfg.Refresh.Enabled {
		log.Info().Msg("Daily refresh disabled")
		return nil
	}

	spec, err := cfg.Refresh.CronSpec()
	if err != nil {
		return err
	}
	if err := container.Scheduler.AddJob(spec, container.RefreshJob); err != nil {
		return fmt.Errorf("failed to register refresh job: %w", err)
	}
	return nil
}
