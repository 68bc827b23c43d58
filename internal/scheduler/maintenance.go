package scheduler

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// walWarnFrames is the WAL size above which a checkpoint is forced
const walWarnFrames = 1000

// MaintenanceJob checks the fund store's integrity and keeps its WAL small
type MaintenanceJob struct {
	db      *sql.DB
	timeout time.Duration
	log     zerolog.Logger
}

// NewMaintenanceJob creates the database maintenance job
func NewMaintenanceJob(db *sql.DB, log zerolog.Logger) *MaintenanceJob {
	return &MaintenanceJob{
		db:      db,
		timeout: 5 * time.Minute,
		log:     log.With().Str("job", "database_maintenance").Logger(),
	}
}

// Name returns the job name
func (j *MaintenanceJob) Name() string {
	return "database_maintenance"
}

// Run executes the maintenance job
func (j *MaintenanceJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	var result string
	if err := j.db.QueryRowContext(ctx, "PRAGMA quick_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		j.log.Error().Str("result", result).Msg("Database integrity check failed")
		return fmt.Errorf("integrity check returned: %s", result)
	}

	// PRAGMA wal_checkpoint returns: busy, log, checkpointed
	var busy, frames, checkpointed int
	if err := j.db.QueryRowContext(ctx, "PRAGMA wal_checkpoint(PASSIVE)").Scan(&busy, &frames, &checkpointed); err != nil {
		return fmt.Errorf("wal checkpoint failed: %w", err)
	}

	if frames > walWarnFrames {
		j.log.Warn().
			Int("wal_frames", frames).
			Int("checkpointed", checkpointed).
			Msg("WAL file is large, truncating")
		if _, err := j.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
			return fmt.Errorf("wal truncate failed: %w", err)
		}
	}

	j.log.Info().Int("wal_frames", frames).Msg("Database maintenance completed")
	return nil
}
