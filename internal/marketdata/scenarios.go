package marketdata

import (
	"context"
	"fmt"
	"math"
	"time"

	"trade-coach/internal/interfaces"
	"trade-coach/internal/logger"
	"trade-coach/internal/ta"
	"trade-coach/internal/types"
)

// trailing stop distance in percent, replayed over the trade's price path
const trailingStopPercent = 2.0

// exchange timestamps come back in IST
var ist = time.FixedZone("IST", 19800)

// Analyzer replays candles around a closed trade to evaluate what other
// exits would have paid, and computes indicator snapshots for the entry day.
type Analyzer struct {
	fetcher *Fetcher
}

var _ interfaces.ExitSimulator = (*Analyzer)(nil)

func NewAnalyzer(fetcher *Fetcher) *Analyzer {
	return &Analyzer{fetcher: fetcher}
}

// ExitScenarios evaluates the trade against 15-minute candles from entry to
// two days past exit: best exit before the actual one, best exit after it,
// and a 2% trailing stop replayed from entry.
func (a *Analyzer) ExitScenarios(ctx context.Context, trade types.ClosedTrade) (*types.ExitScenarios, error) {
	from := trade.EntryDatetime
	to := trade.ExitDatetime.AddDate(0, 0, 2)

	candles, err := a.fetcher.Candles(ctx, trade.Symbol, from, to, types.Interval15Min)
	if err != nil {
		return nil, fmt.Errorf("exit scenarios for %s: %w", trade.Symbol, err)
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("exit scenarios for %s: %w", trade.Symbol, ErrNoData)
	}

	// Index of the last candle at or before the actual exit.
	exitIdx := -1
	exitUnix := trade.ExitDatetime.Unix()
	for i, c := range candles {
		if c.Ts <= exitUnix {
			exitIdx = i
		}
	}
	if exitIdx < 0 {
		return nil, fmt.Errorf("exit scenarios for %s: no candles at or before exit", trade.Symbol)
	}

	out := &types.ExitScenarios{}
	out.BestEarlyExit = bestHigh(candles[:exitIdx], trade)
	if exitIdx+1 < len(candles) {
		out.BestLateExit = bestHigh(candles[exitIdx+1:], trade)
	}
	out.TrailingStop = replayTrailingStop(candles, trade)
	out.PriceVolatility = tradePeriodVolatility(candles[:exitIdx+1])

	logger.Debug(ctx, "Exit scenarios computed", "symbol", trade.Symbol,
		"early", out.BestEarlyExit != nil, "late", out.BestLateExit != nil, "trailing", out.TrailingStop != nil)
	return out, nil
}

// bestHigh picks the candle with the highest high in the window.
func bestHigh(candles []types.Candle, trade types.ClosedTrade) *types.ExitPoint {
	if len(candles) == 0 {
		return nil
	}
	best := candles[0]
	for _, c := range candles[1:] {
		if c.High > best.High {
			best = c
		}
	}
	return &types.ExitPoint{
		Price:        best.High,
		PotentialPnL: (best.High - trade.EntryPrice) * trade.Quantity,
		Time:         time.Unix(best.Ts, 0).In(ist),
	}
}

// replayTrailingStop walks closes from entry, ratcheting the stop under the
// highest close seen. Returns nil when the stop never triggers.
func replayTrailingStop(candles []types.Candle, trade types.ClosedTrade) *types.ExitPoint {
	entryUnix := trade.EntryDatetime.Unix()
	highest := trade.EntryPrice
	for _, c := range candles {
		if c.Ts < entryUnix {
			continue
		}
		if c.Close > highest {
			highest = c.Close
		}
		stop := highest * (1 - trailingStopPercent/100)
		if c.Close <= stop {
			return &types.ExitPoint{
				Price:        c.Close,
				PotentialPnL: (c.Close - trade.EntryPrice) * trade.Quantity,
				Time:         time.Unix(c.Ts, 0).In(ist),
			}
		}
	}
	return nil
}

// tradePeriodVolatility is the std dev of closes between entry and the
// actual exit, as noise context around the exit comparison.
func tradePeriodVolatility(candles []types.Candle) float64 {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	v := ta.StdDev(closes, len(closes))
	if math.IsNaN(v) {
		return 0
	}
	return v
}

// TechnicalSnapshot computes the indicator state of a symbol from the 30
// daily candles ending on the given day. Needs at least 15 candles for a
// 14-period RSI.
func (a *Analyzer) TechnicalSnapshot(ctx context.Context, symbol string, day time.Time) (*types.TechnicalSnapshot, error) {
	candles, err := a.fetcher.Candles(ctx, symbol, day.AddDate(0, 0, -30), day, types.IntervalDay)
	if err != nil {
		return nil, fmt.Errorf("technical snapshot for %s: %w", symbol, err)
	}
	if len(candles) < 15 {
		return nil, fmt.Errorf("technical snapshot for %s: only %d daily candles", symbol, len(candles))
	}

	closes := make([]float64, len(candles))
	vols := make([]float64, len(candles))
	var volSum float64
	for i, c := range candles {
		closes[i] = c.Close
		vols[i] = c.Vol
		volSum += c.Vol
	}

	snap := &types.TechnicalSnapshot{
		RSI:   ta.RSI(closes, 14),
		SMA10: ta.SMA(closes, 10),
		SMA20: ta.SMA(closes, 20),
		VWAP:  ta.VWAP(closes, vols),
	}
	if volSum > 0 {
		snap.VolumeRatio = vols[len(vols)-1] / (volSum / float64(len(vols)))
	}

	// SMA20 needs 20 candles; a short window leaves it NaN, which JSON
	// cannot encode, so zero it out.
	for _, p := range []*float64{&snap.RSI, &snap.SMA10, &snap.SMA20, &snap.VWAP} {
		if math.IsNaN(*p) {
			*p = 0
		}
	}
	return snap, nil
}
