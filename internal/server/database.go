package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/contract-analyzer/internal/common"
	repo "github.com/joseph-ayodele/contract-analyzer/internal/repository"
)

// ConnectDB opens the database named by the config and applies the schema.
func ConnectDB(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*repo.DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := repo.OpenURL(ctx, repo.ConfigFrom(cfg), logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}
	if err := repo.Migrate(ctx, db.Driver); err != nil {
		logger.Error("failed to migrate database", "error", err)
		repo.Close(db, logger)
		return nil, err
	}
	logger.Info("successfully connected to database", "dialect", db.Dialect)
	return db, nil
}

// PingDB pings the database to ensure it's responsive
func PingDB(ctx context.Context, db *repo.DB, logger *slog.Logger, timeout time.Duration) error {
	return repo.HealthCheck(ctx, db, timeout, logger)
}
