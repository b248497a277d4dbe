package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BucketWithdrawable is the only balance bucket the settlement engine
// operates on. Other buckets (frozen, bonus) belong to other subsystems.
const BucketWithdrawable = "withdrawable"

// Balance represents the current amount a user holds of one asset in one bucket.
type Balance struct {
	gorm.Model
	UserID string          `gorm:"uniqueIndex:idx_user_asset_bucket;not null" json:"user_id"`
	Asset  string          `gorm:"uniqueIndex:idx_user_asset_bucket;not null" json:"asset"`
	Bucket string          `gorm:"uniqueIndex:idx_user_asset_bucket;not null;default:withdrawable" json:"bucket"`
	Amount decimal.Decimal `gorm:"type:decimal(32,12);not null" json:"amount"`
}
