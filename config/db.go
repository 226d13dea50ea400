package config

import (
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/zedbingo/bingo-engine/models"
	"github.com/zedbingo/bingo-engine/utils/logger"
)

// SetupDatabase connects to Postgres and runs migrations.
func SetupDatabase(cfg *Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	logger.Info("database connected and migrated")
	return db, nil
}

// Migrate creates or updates the schema for every model.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Room{},
		&models.Game{},
		&models.Card{},
		&models.Transaction{},
	)
}
