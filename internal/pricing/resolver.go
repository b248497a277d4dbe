package pricing

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Route types reported to callers. Direct covers both forward and inverse
// lookups; only the bridge hop is surfaced as a distinct type.
const (
	RouteDirect = "direct"
	RouteTwoHop = "two-hop"
)

// ErrNoRoute is returned when neither a direct, inverse, nor bridged price
// exists for the requested pair.
var ErrNoRoute = errors.New("no conversion route available")

var one = decimal.NewFromInt(1)

// Quote is the outcome of a successful route resolution.
type Quote struct {
	Rate        decimal.Decimal
	RouteType   string
	BridgeAsset string // empty unless RouteType is RouteTwoHop
}

// Resolver finds a usable exchange rate between two assets using a direct
// lookup, an inverse lookup, or a two-hop bridge through a fixed list of
// reserve assets, tried in configuration order.
type Resolver struct {
	bridges []string
}

// NewResolver creates a resolver with the given bridge asset list.
func NewResolver(bridges []string) *Resolver {
	normalized := make([]string, 0, len(bridges))
	for _, b := range bridges {
		if s := Normalize(b); s != "" {
			normalized = append(normalized, s)
		}
	}
	return &Resolver{bridges: normalized}
}

// Resolve returns the rate for converting from→to against the supplied
// snapshot. Lookup order is strict: direct pair, inverse pair reciprocal,
// then each bridge asset in turn. Bridges equal to either endpoint are
// skipped. No paths longer than two hops are attempted.
func (r *Resolver) Resolve(table Table, from, to string) (Quote, error) {
	from = Normalize(from)
	to = Normalize(to)

	if rate, ok := directOrInverse(table, from, to); ok {
		return Quote{Rate: rate, RouteType: RouteDirect}, nil
	}

	for _, bridge := range r.bridges {
		if bridge == from || bridge == to {
			continue
		}
		legIn, ok := directOrInverse(table, from, bridge)
		if !ok {
			continue
		}
		legOut, ok := directOrInverse(table, bridge, to)
		if !ok || !legOut.IsPositive() {
			continue
		}
		return Quote{
			Rate:        legIn.Div(legOut),
			RouteType:   RouteTwoHop,
			BridgeAsset: bridge,
		}, nil
	}

	return Quote{}, ErrNoRoute
}

// directOrInverse prefers the forward pair and falls back to the reciprocal
// of the reverse pair. The two directions are never averaged: stale tables
// may hold both and they are not required to be exact reciprocals.
func directOrInverse(table Table, from, to string) (decimal.Decimal, bool) {
	if p, ok := table.Price(from, to); ok {
		return p, true
	}
	if p, ok := table.Price(to, from); ok {
		return one.Div(p), true
	}
	return decimal.Zero, false
}
