package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Ledger entry directions.
const (
	DirectionDebit  = "debit"
	DirectionCredit = "credit"
)

// LedgerEntry is an append-only record of a single balance mutation.
// The unique index on (idempotency_key, direction) is what makes replaying
// a swap request a no-op: a second attempt with the same key finds the
// existing entry instead of writing a new one.
type LedgerEntry struct {
	gorm.Model
	UserID           string          `gorm:"index;not null" json:"user_id"`
	IdempotencyKey   string          `gorm:"uniqueIndex:idx_idem_direction;not null" json:"idempotency_key"`
	Direction        string          `gorm:"uniqueIndex:idx_idem_direction;not null" json:"direction"`
	Asset            string          `gorm:"not null" json:"asset"`
	Amount           decimal.Decimal `gorm:"type:decimal(32,12);not null" json:"amount"`
	Bucket           string          `gorm:"not null" json:"bucket"`
	ResultingBalance decimal.Decimal `gorm:"type:decimal(32,12);not null" json:"resulting_balance"`
	Metadata         string          `json:"metadata,omitempty"`
}
