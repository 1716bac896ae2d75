package main

import (
	"context"

	"smartpos/internal/config"
	"smartpos/internal/db"
	"smartpos/internal/logging"
	"smartpos/internal/seed"

	"go.uber.org/zap"
)

func main() {
	cfg := config.FromEnv()
	logger := logging.MustNew("seed")
	defer logger.Sync()

	ctx := context.Background()

	pool, err := db.Connect(ctx, cfg.DBConnString, cfg.DBMaxConns)
	if err != nil {
		logger.Fatal("connect database", zap.Error(err))
	}
	defer pool.Close()

	if err := seed.Run(ctx, pool, logger); err != nil {
		logger.Fatal("seed database", zap.Error(err))
	}
	logger.Info("seed complete")
}
