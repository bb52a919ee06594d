package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	repo "github.com/joseph-ayodele/invoice-extractor/internal/repository"
)

// ConnectDB opens the usage store described by cfg. An empty URL disables persistence and
// returns nil without error.
func ConnectDB(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*repo.DB, error) {
	if cfg.URL == "" {
		logger.Info("usage store disabled")
		return nil, nil
	}
	logger.Info("connecting to usage store")
	db, err := repo.Open(ctx, repo.Config{
		DSN:             cfg.URL,
		MaxConns:        cfg.MaxConns,
		MinConns:        cfg.MinConns,
		MaxConnLifetime: cfg.MaxConnLifetime,
		MaxConnIdleTime: 5 * time.Minute,
		DialTimeout:     cfg.DialTimeout,
	}, logger)
	if err != nil {
		logger.Error("failed to connect to usage store", "error", err)
		return nil, err
	}
	logger.Info("successfully connected to usage store", "dialect", db.Dialect())
	return db, nil
}

// PingDB checks the usage store is responsive.
func PingDB(ctx context.Context, db *repo.DB, logger *slog.Logger, timeout time.Duration) error {
	logger.Debug("pinging usage store")
	if err := db.HealthCheck(ctx, timeout); err != nil {
		logger.Error("usage store ping failed", "error", err)
		return err
	}
	logger.Debug("usage store ping successful")
	return nil
}

func CloseDB(db *repo.DB, logger *slog.Logger) {
	if db == nil {
		return
	}
	logger.Info("closing usage store")
	db.Close()
}
