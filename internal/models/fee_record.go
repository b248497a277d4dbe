package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// FeeRecord is the fee-collection audit row written alongside every
// completed swap. Reconciliation dashboards consume these; the engine only
// writes them.
type FeeRecord struct {
	gorm.Model
	SwapID    string          `gorm:"index;not null" json:"swap_id"`
	UserID    string          `gorm:"index;not null" json:"user_id"`
	Asset     string          `gorm:"not null" json:"asset"`
	Amount    decimal.Decimal `gorm:"type:decimal(32,12);not null" json:"amount"`
	RouteType string          `json:"route_type"`
}
