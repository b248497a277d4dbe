package swap

import (
	"context"
	"errors"
	"fmt"

	"asset-swap-go/internal/config"
	"asset-swap-go/internal/models"
	"asset-swap-go/internal/pricing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Idempotency key prefixes for the two ledger legs of a swap.
const (
	debitKeyPrefix  = "swap:debit:"
	creditKeyPrefix = "swap:credit:"
)

var one = decimal.NewFromInt(1)

// PriceSource supplies read-only price table snapshots. Reads never block:
// the updater swaps whole tables behind this interface.
type PriceSource interface {
	Snapshot() pricing.Table
}

// Request is one swap attempt. It is validated once and never mutated.
// A zero SlippagePercent selects the configured default; a zero MinReceive
// disables the floor.
type Request struct {
	UserID          string
	FromAsset       string
	ToAsset         string
	FromAmount      decimal.Decimal
	ExpectedRate    decimal.Decimal
	SlippagePercent decimal.Decimal
	MinReceive      decimal.Decimal
	IdempotencyKey  string
}

// Result is the success payload of a settled swap.
type Result struct {
	SwapID      string
	FromAsset   string
	ToAsset     string
	FromAmount  decimal.Decimal
	ToAmount    decimal.Decimal
	Rate        decimal.Decimal
	FeePercent  decimal.Decimal
	FeeAmount   decimal.Decimal
	RouteType   string
	BridgeAsset string
	Replayed    bool
}

// Engine prices a conversion between two balances, protects the caller
// against price movement, and applies it as an atomic, idempotent pair of
// ledger mutations.
type Engine struct {
	logger          *zap.Logger
	db              *gorm.DB
	ledger          LedgerMutator
	prices          PriceSource
	resolver        *pricing.Resolver
	fees            FeeSchedule
	defaultSlippage decimal.Decimal
	locks           *userLocks
}

// NewEngine creates a settlement engine. All fee, bridge, and slippage
// policy comes from the injected configuration.
func NewEngine(logger *zap.Logger, db *gorm.DB, ledger LedgerMutator, prices PriceSource, cfg config.Swap) *Engine {
	return &Engine{
		logger:          logger.Named("swap-engine"),
		db:              db,
		ledger:          ledger,
		prices:          prices,
		resolver:        pricing.NewResolver(cfg.BridgeAssets),
		fees:            NewFeeSchedule(cfg),
		defaultSlippage: decimal.NewFromFloat(cfg.DefaultSlippagePercent),
		locks:           newUserLocks(),
	}
}

// Execute runs one settlement attempt end to end: validate, resolve the
// route, check the quote, apply the fee, then debit and credit under the
// per-user lock. Replaying an idempotency key that already settled returns
// the original outcome without touching any balance.
func (e *Engine) Execute(ctx context.Context, req Request) (*Result, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}

	l := e.logger.With(
		zap.String("user_id", req.UserID),
		zap.String("from_asset", req.FromAsset),
		zap.String("to_asset", req.ToAsset),
		zap.String("idempotency_key", req.IdempotencyKey),
	)

	// Replay detection comes before any market-condition check: a retried
	// key must return its original outcome even if prices have since moved
	// or the route has disappeared.
	if prior, err := e.priorOutcome(ctx, req.IdempotencyKey); err != nil {
		return nil, err
	} else if prior != nil {
		l.Info("Replaying stored swap outcome", zap.String("status", prior.Status))
		return e.replay(prior)
	}

	// Route resolution and quote validation read only the in-memory
	// snapshot; both happen before the user lock to keep hold time short.
	quote, err := e.resolver.Resolve(e.prices.Snapshot(), req.FromAsset, req.ToAsset)
	if err != nil {
		if errors.Is(err, pricing.ErrNoRoute) {
			return nil, NewError(CodeRouteUnavailable, "no price route for pair").
				WithDetail("from_asset", req.FromAsset).
				WithDetail("to_asset", req.ToAsset)
		}
		return nil, fmt.Errorf("route resolution failed: %w", err)
	}

	tolerance := req.SlippagePercent
	if !tolerance.IsPositive() {
		tolerance = e.defaultSlippage
	}
	if err := CheckSlippage(quote.Rate, req.ExpectedRate, tolerance); err != nil {
		return nil, err
	}

	gross := req.FromAmount.Mul(quote.Rate)
	fee := e.fees.Apply(gross, quote.RouteType)
	if req.MinReceive.IsPositive() && fee.Net.LessThan(req.MinReceive) {
		return nil, NewError(CodeMinReceiveNotMet, "net output below requested minimum").
			WithDetail("min_receive", req.MinReceive.String()).
			WithDetail("net_output", fee.Net.String())
	}

	unlock := e.locks.acquire(req.UserID)
	defer unlock()

	// Re-check under the lock: a concurrent attempt with the same key may
	// have settled while this one waited for it.
	if prior, err := e.priorOutcome(ctx, req.IdempotencyKey); err != nil {
		return nil, err
	} else if prior != nil {
		l.Info("Replaying stored swap outcome", zap.String("status", prior.Status))
		return e.replay(prior)
	}

	debitEntry, _, err := e.ledger.Debit(req.UserID, debitKeyPrefix+req.IdempotencyKey,
		req.FromAsset, req.FromAmount, models.BucketWithdrawable)
	if err != nil {
		return nil, err
	}

	creditEntry, creditReplayed, err := e.ledger.Credit(req.UserID, creditKeyPrefix+req.IdempotencyKey,
		req.ToAsset, fee.Net, models.BucketWithdrawable)
	if err != nil {
		return nil, e.partialFailure(ctx, l, req, quote, fee, err)
	}

	fromAmount, net, rate, feeAmount := req.FromAmount, fee.Net, quote.Rate, fee.Amount
	if creditReplayed {
		// Both legs were applied by a prior attempt whose outcome record
		// never landed. The ledger entries are authoritative; rebuild the
		// settled figures from them instead of current prices.
		fromAmount = debitEntry.Amount
		net = creditEntry.Amount
		feeAmount, rate = settledFigures(fromAmount, net, fee.Percent)
		l.Warn("Rebuilding missing swap record from applied ledger entries")
	}

	record := models.Swap{
		SwapID:         uuid.NewString(),
		IdempotencyKey: req.IdempotencyKey,
		UserID:         req.UserID,
		FromAsset:      req.FromAsset,
		ToAsset:        req.ToAsset,
		FromAmount:     fromAmount,
		ToAmount:       net,
		Rate:           rate,
		RouteType:      quote.RouteType,
		BridgeAsset:    quote.BridgeAsset,
		FeePercent:     fee.Percent,
		FeeAmount:      feeAmount,
		Status:         models.SwapStatusCompleted,
	}
	// The money has moved; a missing audit row is a follow-up repair
	// concern, not a rollback trigger.
	if err := e.db.WithContext(ctx).Create(&record).Error; err != nil {
		l.Error("Failed to write swap record after settlement", zap.Error(err))
	} else {
		feeRecord := models.FeeRecord{
			SwapID:    record.SwapID,
			UserID:    req.UserID,
			Asset:     req.ToAsset,
			Amount:    feeAmount,
			RouteType: quote.RouteType,
		}
		if err := e.db.WithContext(ctx).Create(&feeRecord).Error; err != nil {
			l.Error("Failed to write fee record after settlement", zap.Error(err))
		}
	}

	l.Info("Swap settled",
		zap.String("route_type", quote.RouteType),
		zap.String("rate", rate.String()),
		zap.String("net_output", net.String()),
		zap.String("fee_amount", feeAmount.String()),
	)

	return &Result{
		SwapID:      record.SwapID,
		FromAsset:   req.FromAsset,
		ToAsset:     req.ToAsset,
		FromAmount:  fromAmount,
		ToAmount:    net,
		Rate:        rate,
		FeePercent:  fee.Percent,
		FeeAmount:   feeAmount,
		RouteType:   quote.RouteType,
		BridgeAsset: quote.BridgeAsset,
		Replayed:    creditReplayed,
	}, nil
}

// settledFigures rebuilds the fee and execution rate of an already-applied
// settlement from its ledger amounts. net = from*rate*(1-p) and
// fee = gross-net, so gross = net/(1-p) and rate = gross/from.
func settledFigures(from, net, percent decimal.Decimal) (feeAmount, rate decimal.Decimal) {
	gross := net.Div(one.Sub(percent.Div(hundred)))
	return gross.Sub(net), gross.Div(from)
}

// validateRequest checks request shape and normalizes asset symbols.
func validateRequest(req *Request) error {
	req.FromAsset = pricing.Normalize(req.FromAsset)
	req.ToAsset = pricing.Normalize(req.ToAsset)

	switch {
	case req.UserID == "":
		return NewError(CodeInvalidRequest, "user id is required")
	case req.IdempotencyKey == "":
		return NewError(CodeInvalidRequest, "idempotency key is required")
	case req.FromAsset == "" || req.ToAsset == "":
		return NewError(CodeInvalidRequest, "both assets are required")
	case req.FromAsset == req.ToAsset:
		return NewError(CodeInvalidRequest, "assets must be distinct")
	case !req.FromAmount.IsPositive():
		return NewError(CodeInvalidRequest, "from amount must be positive")
	case !req.ExpectedRate.IsPositive():
		return NewError(CodeInvalidRequest, "expected rate must be positive")
	}
	return nil
}

// priorOutcome loads the stored terminal record for an idempotency key, if any.
func (e *Engine) priorOutcome(ctx context.Context, idempotencyKey string) (*models.Swap, error) {
	var record models.Swap
	err := e.db.WithContext(ctx).Where("idempotency_key = ?", idempotencyKey).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("swap record lookup failed: %w", err)
	}
	return &record, nil
}

// replay converts a stored terminal record back into the original outcome.
func (e *Engine) replay(record *models.Swap) (*Result, error) {
	if record.Status == models.SwapStatusPartialFailure {
		return nil, NewError(CodePartialFailure, "swap previously failed after debit; manual reconciliation required").
			WithDetail("idempotency_key", record.IdempotencyKey)
	}
	return &Result{
		SwapID:      record.SwapID,
		FromAsset:   record.FromAsset,
		ToAsset:     record.ToAsset,
		FromAmount:  record.FromAmount,
		ToAmount:    record.ToAmount,
		Rate:        record.Rate,
		FeePercent:  record.FeePercent,
		FeeAmount:   record.FeeAmount,
		RouteType:   record.RouteType,
		BridgeAsset: record.BridgeAsset,
		Replayed:    true,
	}, nil
}

// partialFailure handles the one state that cannot be refused: the debit
// committed but the credit did not. There is no automatic rollback of the
// single-entry ledger; the failure is made loud and traceable instead.
func (e *Engine) partialFailure(ctx context.Context, l *zap.Logger, req Request, quote pricing.Quote, fee FeeBreakdown, cause error) error {
	l.Error("Credit failed after committed debit; manual reconciliation required",
		zap.String("from_amount", req.FromAmount.String()),
		zap.String("net_output", fee.Net.String()),
		zap.Error(cause),
	)

	record := models.Swap{
		SwapID:         uuid.NewString(),
		IdempotencyKey: req.IdempotencyKey,
		UserID:         req.UserID,
		FromAsset:      req.FromAsset,
		ToAsset:        req.ToAsset,
		FromAmount:     req.FromAmount,
		ToAmount:       fee.Net,
		Rate:           quote.Rate,
		RouteType:      quote.RouteType,
		BridgeAsset:    quote.BridgeAsset,
		FeePercent:     fee.Percent,
		FeeAmount:      fee.Amount,
		Status:         models.SwapStatusPartialFailure,
		FailureCode:    string(CodePartialFailure),
	}
	if err := e.db.WithContext(ctx).Create(&record).Error; err != nil {
		l.Error("Failed to record partial failure", zap.Error(err))
	}

	return NewError(CodePartialFailure, "credit failed after debit; manual reconciliation required").
		WithDetail("idempotency_key", req.IdempotencyKey).
		WithDetail("user_id", req.UserID).
		WithDetail("debited_amount", req.FromAmount.String()).
		WithDetail("undelivered_amount", fee.Net.String())
}
