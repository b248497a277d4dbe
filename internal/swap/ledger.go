package swap

import (
	"errors"
	"fmt"

	"asset-swap-go/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LedgerMutator applies balance mutations through two narrowly-typed
// operations. Each is independently idempotent: replaying an applied key
// returns the prior entry (replayed=true) without mutating again.
type LedgerMutator interface {
	Debit(userID, idempotencyKey, asset string, amount decimal.Decimal, bucket string) (*models.LedgerEntry, bool, error)
	Credit(userID, idempotencyKey, asset string, amount decimal.Decimal, bucket string) (*models.LedgerEntry, bool, error)
}

// Ledger is the gorm-backed ledger mutator. The idempotency guarantee rests
// on the unique (idempotency_key, direction) index; the balance check and
// write run inside one database transaction, and the engine serializes
// same-user calls, so a debit can never drive a bucket negative.
type Ledger struct {
	db *gorm.DB
}

// ensure Ledger implements the interface
var _ LedgerMutator = (*Ledger)(nil)

// NewLedger creates a ledger mutator on the given database.
func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// Debit removes amount from the user's bucket. Fails with
// INSUFFICIENT_BALANCE when the bucket cannot cover it; no entry is written
// in that case.
func (l *Ledger) Debit(userID, idempotencyKey, asset string, amount decimal.Decimal, bucket string) (*models.LedgerEntry, bool, error) {
	return l.apply(userID, idempotencyKey, models.DirectionDebit, asset, amount, bucket)
}

// Credit adds amount to the user's bucket, creating the balance row if the
// user has never held the asset.
func (l *Ledger) Credit(userID, idempotencyKey, asset string, amount decimal.Decimal, bucket string) (*models.LedgerEntry, bool, error) {
	return l.apply(userID, idempotencyKey, models.DirectionCredit, asset, amount, bucket)
}

func (l *Ledger) apply(userID, idempotencyKey, direction, asset string, amount decimal.Decimal, bucket string) (*models.LedgerEntry, bool, error) {
	if !amount.IsPositive() {
		return nil, false, NewError(CodeInvalidRequest, "ledger amount must be positive")
	}

	var entry models.LedgerEntry
	replayed := false

	err := l.db.Transaction(func(tx *gorm.DB) error {
		// Replay detection first: an existing entry for this key means the
		// mutation already happened and must not be applied again.
		err := tx.Where("idempotency_key = ? AND direction = ?", idempotencyKey, direction).
			First(&entry).Error
		if err == nil {
			replayed = true
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("ledger lookup failed: %w", err)
		}

		var balance models.Balance
		err = tx.Where("user_id = ? AND asset = ? AND bucket = ?", userID, asset, bucket).
			First(&balance).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if direction == models.DirectionDebit {
				return NewError(CodeInsufficientBalance, "no balance to debit").
					WithDetail("asset", asset).
					WithDetail("required", amount.String()).
					WithDetail("available", "0")
			}
			balance = models.Balance{UserID: userID, Asset: asset, Bucket: bucket, Amount: decimal.Zero}
			if err := tx.Create(&balance).Error; err != nil {
				return fmt.Errorf("failed to create balance: %w", err)
			}
		} else if err != nil {
			return fmt.Errorf("balance lookup failed: %w", err)
		}

		var resulting decimal.Decimal
		if direction == models.DirectionDebit {
			if balance.Amount.LessThan(amount) {
				return NewError(CodeInsufficientBalance, "balance cannot cover debit").
					WithDetail("asset", asset).
					WithDetail("required", amount.String()).
					WithDetail("available", balance.Amount.String())
			}
			resulting = balance.Amount.Sub(amount)
		} else {
			resulting = balance.Amount.Add(amount)
		}

		if err := tx.Model(&balance).Update("amount", resulting).Error; err != nil {
			return fmt.Errorf("failed to update balance: %w", err)
		}

		entry = models.LedgerEntry{
			UserID:           userID,
			IdempotencyKey:   idempotencyKey,
			Direction:        direction,
			Asset:            asset,
			Amount:           amount,
			Bucket:           bucket,
			ResultingBalance: resulting,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("failed to write ledger entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &entry, replayed, nil
}
