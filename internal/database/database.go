package database

import (
	"fmt"

	"asset-swap-go/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewDatabase creates a new database connection and performs auto-migration.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := AutoMigrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// AutoMigrate creates or updates the schema for all engine tables.
// Balances and ledger entries are owned by the ledger collaborator in
// production; locally they live in the same database so the settlement
// engine can be run and tested as a single process.
func AutoMigrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Balance{},
		&models.LedgerEntry{},
		&models.Swap{},
		&models.FeeRecord{},
	)
	if err != nil {
		return fmt.Errorf("failed to auto-migrate database: %w", err)
	}
	return nil
}
