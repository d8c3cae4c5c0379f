package di

import (
	"fmt"

	"github.com/aristath/pescan/internal/config"
	"github.com/aristath/pescan/internal/database"
	"github.com/rs/zerolog"
)

// InitializeDatabases opens the scan database and applies its schema.
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	// pescan.db - scan runs and cached qubit operators
	db, err := database.New(database.Config{
		Path:    cfg.DatabasePath(),
		Profile: database.ProfileStandard,
		Name:    "pescan",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize pescan database: %w", err)
	}

	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pescan schema: %w", err)
	}
	container.DB = db

	log.Info().Str("path", db.Path()).Msg("Database initialized")
	return container, nil
}
