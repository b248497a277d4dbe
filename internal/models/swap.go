package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Terminal statuses of a swap attempt. Attempts that fail before any ledger
// mutation leave no row at all, so the same idempotency key can be retried.
const (
	SwapStatusCompleted      = "completed"
	SwapStatusPartialFailure = "partial_failure"
)

// Swap is the persisted outcome of one settlement attempt, keyed by the
// caller-supplied idempotency key. It is created exactly once per key and
// never updated after its terminal status is set.
type Swap struct {
	gorm.Model
	SwapID         string          `gorm:"uniqueIndex;not null" json:"swap_id"`
	IdempotencyKey string          `gorm:"uniqueIndex;not null" json:"idempotency_key"`
	UserID         string          `gorm:"index;not null" json:"user_id"`
	FromAsset      string          `gorm:"not null" json:"from_asset"`
	ToAsset        string          `gorm:"not null" json:"to_asset"`
	FromAmount     decimal.Decimal `gorm:"type:decimal(32,12);not null" json:"from_amount"`
	ToAmount       decimal.Decimal `gorm:"type:decimal(32,12)" json:"to_amount"`
	Rate           decimal.Decimal `gorm:"type:decimal(32,12)" json:"rate"`
	RouteType      string          `json:"route_type"`
	BridgeAsset    string          `json:"bridge_asset,omitempty"`
	FeePercent     decimal.Decimal `gorm:"type:decimal(16,8)" json:"fee_percent"`
	FeeAmount      decimal.Decimal `gorm:"type:decimal(32,12)" json:"fee_amount"`
	Status         string          `gorm:"not null" json:"status"`
	FailureCode    string          `json:"failure_code,omitempty"`
}
