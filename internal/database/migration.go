package database

import (
	"fmt"

	"github.com/AIP-project/portfolia-backend-sub000/internal/models"

	"gorm.io/gorm"
)

// AutoMigrate runs database schema migrations for all models.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Account{},
		&models.Transaction{},
		&models.Summary{},
		&models.ExchangeRateSnapshot{},
		&models.PriceHistoryPoint{},
		&models.JobLock{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
