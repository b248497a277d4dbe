package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Table is a read-only snapshot of exchange rates keyed by ordered pair
// symbol "A/B". The value is the amount of B received per 1 unit of A.
// The market-data updater replaces whole snapshots; the engine only reads.
type Table map[string]decimal.Decimal

// PairSymbol builds the table key for an ordered asset pair.
func PairSymbol(from, to string) string {
	return from + "/" + to
}

// Price returns the direct price for from→to if the table holds a positive
// entry for it.
func (t Table) Price(from, to string) (decimal.Decimal, bool) {
	p, ok := t[PairSymbol(from, to)]
	if !ok || !p.IsPositive() {
		return decimal.Zero, false
	}
	return p, true
}

// Normalize uppercases an asset symbol. Symbols are matched by exact string
// equality after this.
func Normalize(asset string) string {
	return strings.ToUpper(strings.TrimSpace(asset))
}
