package db

import (
	"fmt"

	"github.com/storebridge/storebridge/models"
	"gorm.io/gorm"
)

func Migrate(gdb *gorm.DB) error {
	err := gdb.AutoMigrate(
		&models.Command{},
		&models.DeliveryAttempt{},
		&models.IdempotencyRecord{},
		&models.NonceRecord{},
		&models.SkuSkipRecord{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
