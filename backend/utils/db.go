package utils

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"rainforest/backend/config"
	"rainforest/backend/models"
)

// InitDB открывает соединение с Postgres и накатывает схему.
func InitDB(cfg *config.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := models.Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}
