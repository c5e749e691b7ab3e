package interfaces

import (
	"context"
	"time"

	"trade-coach/internal/types"
)

// PriceSource serves historical candles for one upstream provider.
// Implementations return an error (or an empty slice) when the provider has
// nothing for the symbol; the fetcher falls through to the next source.
type PriceSource interface {
	Name() string
	Candles(ctx context.Context, symbol string, from, to time.Time, interval types.Interval) ([]types.Candle, error)
}

// QuoteSource serves a last traded price only. Used for source status
// checks and as a base-price fallback when no candles are reachable.
type QuoteSource interface {
	Name() string
	Quote(ctx context.Context, symbol string) (float64, error)
}

// ExitSimulator replays a trade's price path to evaluate alternative exits.
type ExitSimulator interface {
	ExitScenarios(ctx context.Context, trade types.ClosedTrade) (*types.ExitScenarios, error)
}
