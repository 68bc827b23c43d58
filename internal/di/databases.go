package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/fundsentinel/internal/config"
	"github.com/aristath/fundsentinel/internal/database"
)

// InitializeDatabases opens funds.db and applies the schema
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	db, err := database.New(database.Config{
		Path:    cfg.DatabasePath(),
		Profile: database.ProfileStandard,
		Name:    "funds",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize funds database: %w", err)
	}

	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate funds database: %w", err)
	}

	log.Info().Str("path", db.Path()).Msg("Database initialized")
	return &Container{DB: db}, nil
}
