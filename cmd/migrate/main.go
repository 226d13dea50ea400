package main

import (
	"github.com/zedbingo/bingo-engine/config"
	"github.com/zedbingo/bingo-engine/utils/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		logger.Fatalf("DATABASE_URL is required")
	}

	if _, err := config.SetupDatabase(cfg); err != nil {
		logger.Fatalf("migration failed: %v", err)
	}
	logger.Info("database migration completed")
}
