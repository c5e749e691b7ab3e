package matcher

import (
	"github.com/montanaflynn/stats"

	"trade-coach/internal/types"
)

// Summarize aggregates a closed-trade collection. Pure function of its
// input; an empty collection yields a zero-valued summary, never a
// divide-by-zero.
func Summarize(trades []types.ClosedTrade) types.Summary {
	if len(trades) == 0 {
		return types.Summary{}
	}

	pnls := make([]float64, len(trades))
	holds := make([]float64, len(trades))
	var wins int
	var volume float64
	for i, t := range trades {
		pnls[i] = t.GrossPnL
		holds[i] = t.HoldHours
		if t.Result == types.Win {
			wins++
		}
		volume += t.EntryValue
	}

	total, _ := stats.Sum(pnls)
	avg, _ := stats.Mean(pnls)
	maxProfit, _ := stats.Max(pnls)
	maxLoss, _ := stats.Min(pnls)
	avgHold, _ := stats.Mean(holds)

	return types.Summary{
		TotalTrades:   len(trades),
		WinningTrades: wins,
		LosingTrades:  len(trades) - wins,
		WinRate:       float64(wins) / float64(len(trades)) * 100,
		TotalPnL:      total,
		AvgPnL:        avg,
		MaxProfit:     maxProfit,
		MaxLoss:       maxLoss,
		AvgHoldHours:  avgHold,
		TotalVolume:   volume,
	}
}
