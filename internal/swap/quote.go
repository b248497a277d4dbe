package swap

import (
	"asset-swap-go/internal/config"
	"asset-swap-go/internal/pricing"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// CheckSlippage rejects the quote when the live rate has drifted from the
// caller's expected rate by more than tolerancePercent in either direction.
// The check is deliberately symmetric: a favorable move beyond tolerance is
// rejected too, forcing the caller to re-quote whenever the market has moved
// materially. (Flagged for product review; most swap UIs only block
// unfavorable drift.)
func CheckSlippage(live, expected, tolerancePercent decimal.Decimal) error {
	drift := live.Sub(expected).Abs().Div(expected)
	if drift.GreaterThan(tolerancePercent.Div(hundred)) {
		return NewError(CodeSlippageExceeded, "rate moved beyond slippage tolerance").
			WithDetail("expected_rate", expected.String()).
			WithDetail("current_rate", live.String()).
			WithDetail("tolerance_percent", tolerancePercent.String())
	}
	return nil
}

// FeeSchedule holds the static per-route fee percentages. Two-hop routes
// cost more than direct ones: the bridge leg carries extra reserve-asset
// exposure.
type FeeSchedule struct {
	DirectPercent decimal.Decimal
	TwoHopPercent decimal.Decimal
}

// NewFeeSchedule builds a schedule from the swap configuration.
func NewFeeSchedule(cfg config.Swap) FeeSchedule {
	return FeeSchedule{
		DirectPercent: decimal.NewFromFloat(cfg.DirectFeePercent),
		TwoHopPercent: decimal.NewFromFloat(cfg.TwoHopFeePercent),
	}
}

// FeeBreakdown is the result of applying the schedule to a gross output.
type FeeBreakdown struct {
	Percent decimal.Decimal
	Amount  decimal.Decimal
	Net     decimal.Decimal
}

// Apply computes the fee for a route type and the net output after the fee.
// Net is truncated to 12 decimal places and the fee keeps the residual, so
// gross == net + fee holds exactly.
func (s FeeSchedule) Apply(gross decimal.Decimal, routeType string) FeeBreakdown {
	percent := s.DirectPercent
	if routeType == pricing.RouteTwoHop {
		percent = s.TwoHopPercent
	}

	fee := gross.Mul(percent).Div(hundred)
	net := gross.Sub(fee).RoundDown(12)
	fee = gross.Sub(net)

	return FeeBreakdown{Percent: percent, Amount: fee, Net: net}
}
