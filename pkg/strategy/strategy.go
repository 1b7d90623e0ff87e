// Package strategy names the strategy identifiers accepted by the optimizer
// core. The core stores the identifier with each run but does not vary the
// computation on it; the catalog exists so hosts can label runs.
package strategy

// Strategy identifiers.
const (
	MarketMaking  uint8 = 0
	MeanReversion uint8 = 1
	Momentum      uint8 = 2
	Arbitrage     uint8 = 3
)

var names = map[uint8]string{
	MarketMaking:  "market_making",
	MeanReversion: "mean_reversion",
	Momentum:      "momentum",
	Arbitrage:     "arbitrage",
}

// Name returns the label for a strategy identifier, or "unknown" for
// identifiers outside the catalog. Unknown identifiers are still accepted
// by the core as a pass-through field.
func Name(id uint8) string {
	if n, ok := names[id]; ok {
		return n
	}
	return "unknown"
}

// Known reports whether the identifier is in the catalog.
func Known(id uint8) bool {
	_, ok := names[id]
	return ok
}
