package mdobs

import (
	"context"
	"time"

	"trade-coach/internal/interfaces"
	"trade-coach/internal/logger"
	"trade-coach/internal/types"
)

// observableSource wraps a PriceSource with observability (logging & tracing)
type observableSource struct {
	source interfaces.PriceSource
}

// Compile-time interface check
var _ interfaces.PriceSource = (*observableSource)(nil)

// Wrap wraps a price source with observability middleware
func Wrap(source interfaces.PriceSource) interfaces.PriceSource {
	return &observableSource{
		source: source,
	}
}

func (os *observableSource) Name() string {
	return os.source.Name()
}

// Candles fetches candles with observability
func (os *observableSource) Candles(ctx context.Context, symbol string, from, to time.Time, interval types.Interval) ([]types.Candle, error) {
	ctx, span := logger.StartSpan(ctx, "marketdata.Candles")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Fetching candles", "source", os.source.Name(), "symbol", symbol, "interval", string(interval))

	candles, err := os.source.Candles(ctx, symbol, from, to, interval)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch candles", err, "source", os.source.Name(), "symbol", symbol)
		return nil, err
	}

	logger.DebugSkip(ctx, 1, "Candles fetched successfully", "source", os.source.Name(), "symbol", symbol, "count", len(candles))
	return candles, nil
}

// observableSimulator wraps an ExitSimulator with observability
type observableSimulator struct {
	sim interfaces.ExitSimulator
}

var _ interfaces.ExitSimulator = (*observableSimulator)(nil)

// WrapSimulator wraps an exit simulator with observability middleware
func WrapSimulator(sim interfaces.ExitSimulator) interfaces.ExitSimulator {
	return &observableSimulator{
		sim: sim,
	}
}

// ExitScenarios replays a trade with observability
func (osim *observableSimulator) ExitScenarios(ctx context.Context, trade types.ClosedTrade) (*types.ExitScenarios, error) {
	ctx, span := logger.StartSpan(ctx, "marketdata.ExitScenarios")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Replaying exit scenarios", "symbol", trade.Symbol, "quantity", trade.Quantity)

	scenarios, err := osim.sim.ExitScenarios(ctx, trade)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to replay exit scenarios", err, "symbol", trade.Symbol)
		return nil, err
	}

	logger.DebugSkip(ctx, 1, "Exit scenarios replayed successfully", "symbol", trade.Symbol)
	return scenarios, nil
}
