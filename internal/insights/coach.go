package insights

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/montanaflynn/stats"

	"trade-coach/internal/logger"
	"trade-coach/internal/types"
)

// Coach renders the eight fixed report cards from closed trades. Unlike
// the insight generator, every card is always produced (with a fallback
// message when the data is too thin).
type Coach struct{}

func NewCoach() *Coach {
	return &Coach{}
}

// Cards returns the eight coach cards in their fixed order. Empty input
// yields nil.
func (c *Coach) Cards(ctx context.Context, trades []types.ClosedTrade) []types.CoachCard {
	if len(trades) == 0 {
		return nil
	}

	logger.Debug(ctx, "Generating coach cards", "trades", len(trades))

	return []types.CoachCard{
		c.performanceSummary(trades),
		c.winningPatterns(trades),
		c.topMistakes(trades),
		c.behavioralBias(trades),
		c.whatIf(trades),
		c.strategyLeaderboard(trades),
		c.timePerformanceMap(trades),
		c.stockFocus(trades),
	}
}

// Card 1: overall performance plus best and worst symbols.
func (c *Coach) performanceSummary(trades []types.ClosedTrade) types.CoachCard {
	var totalPnL, holdSum, swingPnL, intradayPnL float64
	for _, t := range trades {
		totalPnL += t.GrossPnL
		holdSum += t.HoldHours
		if t.HoldHours > 24 {
			swingPnL += t.GrossPnL
		} else {
			intradayPnL += t.GrossPnL
		}
	}
	avgHold := holdSum / float64(len(trades))

	bySymbol := aggregateSymbols(trades)
	best, worst := bySymbol[0], bySymbol[0]
	for _, s := range bySymbol[1:] {
		if s.totalPnL > best.totalPnL {
			best = s
		}
		if s.totalPnL < worst.totalPnL {
			worst = s
		}
	}

	bestStrategy := "intraday trades"
	if swingPnL > intradayPnL {
		bestStrategy = "swing trades"
	}

	return types.CoachCard{
		Title:   "Performance Summary",
		Type:    "performance_summary",
		Insight: fmt.Sprintf("You earned most from %s.", bestStrategy),
		Action:  fmt.Sprintf("Focus more on %s to maximize profits.", bestStrategy),
		Data: map[string]any{
			"net_pnl":         totalPnL,
			"win_rate":        winRate(trades),
			"avg_hold_time":   formatHold(avgHold),
			"best_stock":      best.symbol,
			"best_stock_pnl":  best.totalPnL,
			"worst_stock":     worst.symbol,
			"worst_stock_pnl": worst.totalPnL,
		},
	}
}

// Card 2: the morning-entry pattern, or median winner hold time as a
// fallback when there were no early entries.
func (c *Coach) winningPatterns(trades []types.ClosedTrade) types.CoachCard {
	var early, shortHolds []types.ClosedTrade
	var earlyROI []float64
	for _, t := range trades {
		if t.EntryDatetime.Hour() < 10 {
			early = append(early, t)
			earlyROI = append(earlyROI, t.PnLPercentage)
		}
		if t.HoldHours < 3 {
			shortHolds = append(shortHolds, t)
		}
	}

	if len(early) > 0 {
		earlyRate := winRate(early)
		avgROI, _ := stats.Mean(earlyROI)
		return types.CoachCard{
			Title:   "Winning Patterns",
			Type:    "winning_patterns",
			Insight: fmt.Sprintf("%d trades followed this pattern with %.0f%% success.", len(early), earlyRate),
			Action:  "Schedule more trades in the morning window for higher success rates.",
			Data: map[string]any{
				"entry_time":    "Before 10:00 AM",
				"hold_duration": "<3 hours",
				"win_rate":      math.Max(earlyRate, winRate(shortHolds)),
				"avg_roi":       avgROI,
				"trade_count":   len(early),
			},
		}
	}

	var winnerHolds, winnerROI []float64
	for _, t := range trades {
		if t.Result == types.Win {
			winnerHolds = append(winnerHolds, t.HoldHours)
			winnerROI = append(winnerROI, t.PnLPercentage)
		}
	}
	medianHold, _ := stats.Median(winnerHolds)
	avgROI, _ := stats.Mean(winnerROI)
	return types.CoachCard{
		Title:   "Winning Patterns",
		Type:    "winning_patterns",
		Insight: fmt.Sprintf("Optimal hold time appears to be around %.1f hours.", medianHold),
		Action:  "Target similar hold durations for future trades.",
		Data: map[string]any{
			"hold_duration": fmt.Sprintf("~%.1f hours", medianHold),
			"avg_roi":       avgROI,
			"trade_count":   len(winnerHolds),
		},
	}
}

type mistake struct {
	Mistake   string  `json:"mistake"`
	Impact    float64 `json:"impact"`
	Frequency int     `json:"frequency"`
}

// Card 3: the three costliest recurring mistakes.
func (c *Coach) topMistakes(trades []types.ClosedTrade) types.CoachCard {
	var mistakes []mistake

	var lateLoss float64
	var lateCount int
	var longLoserLoss float64
	var longLoserCount int
	pnls := make([]float64, len(trades))
	for i, t := range trades {
		pnls[i] = t.GrossPnL
		if t.EntryDatetime.Hour() >= 14 {
			lateCount++
			if t.Result == types.Loss {
				lateLoss += t.GrossPnL
			}
		}
		if t.HoldHours > 24 && t.Result == types.Loss {
			longLoserLoss += t.GrossPnL
			longLoserCount++
		}
	}

	if lateLoss < 0 {
		mistakes = append(mistakes, mistake{"Entry after 2:00 PM", math.Abs(lateLoss), lateCount})
	}
	if longLoserCount > 0 {
		mistakes = append(mistakes, mistake{"Holding losses too long", math.Abs(longLoserLoss), longLoserCount})
	}

	if p10, err := stats.Percentile(pnls, 10); err == nil {
		var tailLoss float64
		var tailCount int
		for _, pnl := range pnls {
			if pnl < p10 {
				tailLoss += pnl
				tailCount++
			}
		}
		if tailCount > 0 {
			mistakes = append(mistakes, mistake{"Large position sizes on losers", math.Abs(tailLoss), tailCount})
		}
	}

	sort.Slice(mistakes, func(i, j int) bool { return mistakes[i].Impact > mistakes[j].Impact })
	if len(mistakes) > 3 {
		mistakes = mistakes[:3]
	}

	var total float64
	for _, m := range mistakes {
		total += m.Impact
	}

	return types.CoachCard{
		Title:   "Top Mistakes To Avoid",
		Type:    "top_mistakes",
		Insight: fmt.Sprintf("These patterns cost you %s.", inr(total)),
		Action:  "Set rules to avoid these specific scenarios in future trades.",
		Data: map[string]any{
			"mistakes":     mistakes,
			"total_impact": total,
		},
	}
}

// Card 4: emotional patterns. Revenge trading is re-entering the same
// symbol within two hours of a loss on it.
func (c *Coach) behavioralBias(trades []types.ClosedTrade) types.CoachCard {
	var biases []string

	byExit := make([]types.ClosedTrade, len(trades))
	copy(byExit, trades)
	sort.SliceStable(byExit, func(i, j int) bool {
		return byExit[i].ExitDatetime.Before(byExit[j].ExitDatetime)
	})

	var revengeTotal, revengeLosses int
	for i := 1; i < len(byExit); i++ {
		prev, cur := byExit[i-1], byExit[i]
		if prev.Symbol == cur.Symbol && prev.Result == types.Loss &&
			cur.EntryDatetime.Sub(prev.ExitDatetime) < 2*time.Hour &&
			cur.EntryDatetime.After(prev.ExitDatetime) {
			revengeTotal++
			if cur.Result == types.Loss {
				revengeLosses++
			}
		}
	}
	if revengeTotal > 0 {
		failRate := float64(revengeLosses) / float64(revengeTotal) * 100
		biases = append(biases, fmt.Sprintf("Revenge Trading: Re-entered same stock after loss, %.0f%% failed", failRate))
	}

	var winners, quickExits int
	for _, t := range trades {
		if t.Result == types.Win {
			winners++
			if t.HoldHours < 1 {
				quickExits++
			}
		}
	}
	if winners > 0 && float64(quickExits) > float64(winners)*0.3 {
		biases = append(biases, "Premature Profit Taking: Exited winners too early, check what-if analysis")
	}

	if len(trades) > 5 {
		byEntry := make([]types.ClosedTrade, len(trades))
		copy(byEntry, trades)
		sort.SliceStable(byEntry, func(i, j int) bool {
			return byEntry[i].EntryDatetime.Before(byEntry[j].EntryDatetime)
		})
		maxStreak, cur := 0, 0
		for _, t := range byEntry {
			if t.Result == types.Win {
				cur++
				if cur > maxStreak {
					maxStreak = cur
				}
			} else {
				cur = 0
			}
		}
		if maxStreak >= 3 {
			biases = append(biases, "Position Sizing Creep: After wins, check if position sizes increased risk")
		}
	}

	return types.CoachCard{
		Title:   "Behavioral Bias Report",
		Type:    "behavioral_bias",
		Insight: fmt.Sprintf("Detected %d potential behavioral patterns affecting performance.", len(biases)),
		Action:  "Set systematic rules to counteract these emotional trading patterns.",
		Data:    map[string]any{"biases": biases},
	}
}

// Card 5: rough estimates of what rule changes would have been worth.
// The insight generator's exit-opportunity rule supplies the real-data
// version; these are the quick heuristics.
func (c *Coach) whatIf(trades []types.ClosedTrade) types.CoachCard {
	var suggestions []string
	var totalMissed float64

	var quickWinnerPnL []float64
	var lateLoserLoss, profitableSum float64
	for _, t := range trades {
		if t.Result == types.Win && t.HoldHours < 2 {
			quickWinnerPnL = append(quickWinnerPnL, t.GrossPnL)
		}
		if t.EntryDatetime.Hour() >= 14 && t.Result == types.Loss {
			lateLoserLoss += math.Abs(t.GrossPnL)
		}
		if t.GrossPnL > 0 {
			profitableSum += t.GrossPnL
		}
	}

	if len(quickWinnerPnL) > 0 {
		avg, _ := stats.Mean(quickWinnerPnL)
		estimated := float64(len(quickWinnerPnL)) * avg * 0.3
		totalMissed += estimated
		suggestions = append(suggestions, fmt.Sprintf("If you had held winners 30 mins longer: +%s", inr(estimated)))
	}
	if lateLoserLoss > 0 {
		suggestions = append(suggestions, fmt.Sprintf("If you avoided post-2PM entries: +%s saved", inr(lateLoserLoss)))
	}
	if profitableSum > 0 {
		suggestions = append(suggestions, fmt.Sprintf("Trailing stop strategy: +%s potential", inr(profitableSum*0.15)))
	}

	return types.CoachCard{
		Title:   "What-If Analysis",
		Type:    "whatif_analysis",
		Insight: fmt.Sprintf("Potential improvements worth %s identified across all trades.", inr(totalMissed)),
		Action:  "Implement systematic rules to capture these missed opportunities.",
		Data: map[string]any{
			"suggestions":       suggestions,
			"total_opportunity": totalMissed,
		},
	}
}

type strategy struct {
	Name    string  `json:"name"`
	WinRate float64 `json:"win_rate"`
	ROI     float64 `json:"roi"`
	Note    string  `json:"note"`
}

// Card 6: swing vs intraday vs morning entries, ranked by win rate.
func (c *Coach) strategyLeaderboard(trades []types.ClosedTrade) types.CoachCard {
	var swing, intraday, morning []types.ClosedTrade
	for _, t := range trades {
		if t.HoldHours > 24 {
			swing = append(swing, t)
		}
		if t.HoldHours <= 8 {
			intraday = append(intraday, t)
		}
		if t.EntryDatetime.Hour() < 11 {
			morning = append(morning, t)
		}
	}

	var strategies []strategy
	if len(swing) > 0 {
		strategies = append(strategies, strategy{"Swing: >1d hold", winRate(swing), avgROI(swing), "Longer-term positions"})
	}
	if len(intraday) > 0 {
		strategies = append(strategies, strategy{"Intraday: <8h hold", winRate(intraday), avgROI(intraday), "Same-day trading"})
	}
	if len(morning) > 0 {
		strategies = append(strategies, strategy{"Morning: <11AM entry", winRate(morning), avgROI(morning), "Early market entry"})
	}

	if len(strategies) == 0 {
		return types.CoachCard{
			Title:   "Strategy Leaderboard",
			Type:    "strategy_leaderboard",
			Insight: "Need more data",
			Action:  "Collect more trade data",
		}
	}

	sort.SliceStable(strategies, func(i, j int) bool { return strategies[i].WinRate > strategies[j].WinRate })
	best := strategies[0]

	data := map[string]any{
		"strategies":    strategies,
		"best_strategy": best,
	}
	if len(strategies) > 1 {
		data["worst_strategy"] = strategies[len(strategies)-1]
	}

	return types.CoachCard{
		Title:   "Strategy Leaderboard",
		Type:    "strategy_leaderboard",
		Insight: fmt.Sprintf("Best: %s (%.0f%% win rate)", best.Name, best.WinRate),
		Action:  fmt.Sprintf("Double down on %s setups", best.Name),
		Data:    data,
	}
}

// Card 7: average ROI per entry hour; calls out the best and worst hour.
func (c *Coach) timePerformanceMap(trades []types.ClosedTrade) types.CoachCard {
	byHour := map[int][]types.ClosedTrade{}
	for _, t := range trades {
		h := t.EntryDatetime.Hour()
		byHour[h] = append(byHour[h], t)
	}

	bestHour, worstHour := -1, -1
	bestROI := math.Inf(-1)
	worstROI := math.Inf(1)
	for h := 0; h < 24; h++ {
		bucket, ok := byHour[h]
		if !ok {
			continue
		}
		roi := avgROI(bucket)
		if roi > bestROI {
			bestROI, bestHour = roi, h
		}
		if roi < worstROI {
			worstROI, worstHour = roi, h
		}
	}

	if bestHour < 0 {
		return types.CoachCard{
			Title:   "Time Performance Map",
			Type:    "time_performance",
			Insight: "Need more data to identify time-based patterns",
			Action:  "Continue trading to build time-based performance data",
		}
	}

	return types.CoachCard{
		Title: "Time Performance Map",
		Type:  "time_performance",
		Insight: fmt.Sprintf("Best: %d:00-%d:00 (+%.1f%%), Worst: %d:00-%d:00 (%.1f%%)",
			bestHour, bestHour+1, bestROI, worstHour, worstHour+1, worstROI),
		Action: fmt.Sprintf("Limit new entries during %d:00-%d:00 window for 2 weeks and measure impact.", worstHour, worstHour+1),
		Data: map[string]any{
			"best_window": map[string]any{
				"time":     fmt.Sprintf("%d:00 - %d:00", bestHour, bestHour+1),
				"roi":      round1(bestROI),
				"win_rate": round1(winRate(byHour[bestHour])),
			},
			"worst_window": map[string]any{
				"time":     fmt.Sprintf("%d:00 - %d:00", worstHour, worstHour+1),
				"roi":      round1(worstROI),
				"win_rate": round1(winRate(byHour[worstHour])),
			},
		},
	}
}

// Card 8: champion symbol and, when one lost money, the symbol to bench.
// Only symbols with at least two trades count.
func (c *Coach) stockFocus(trades []types.ClosedTrade) types.CoachCard {
	var significant []symbolStats
	for _, s := range aggregateSymbols(trades) {
		if s.count >= 2 {
			significant = append(significant, s)
		}
	}

	if len(significant) == 0 {
		return types.CoachCard{
			Title:   "Stock Focus",
			Type:    "stock_focus",
			Insight: "Need more trades per stock to identify consistent performers",
			Action:  "Focus on 3-5 stocks to build deeper performance insights",
		}
	}

	best, worst := significant[0], significant[0]
	for _, s := range significant[1:] {
		if s.totalPnL > best.totalPnL {
			best = s
		}
		if s.totalPnL < worst.totalPnL {
			worst = s
		}
	}

	data := map[string]any{
		"champion_stock": map[string]any{
			"symbol":      best.symbol,
			"pnl":         best.totalPnL,
			"win_rate":    best.winRate,
			"trade_count": best.count,
		},
	}
	if worst.totalPnL < 0 {
		data["avoid_stock"] = map[string]any{
			"symbol":      worst.symbol,
			"pnl":         worst.totalPnL,
			"win_rate":    worst.winRate,
			"trade_count": worst.count,
		}
	}

	return types.CoachCard{
		Title:   "Stock Focus",
		Type:    "stock_focus",
		Insight: fmt.Sprintf("Champion: %s (%s, %.0f%% win rate)", best.symbol, inr(best.totalPnL), best.winRate),
		Action:  fmt.Sprintf("Increase allocation to %s while maintaining risk management.", best.symbol),
		Data:    data,
	}
}

func avgROI(trades []types.ClosedTrade) float64 {
	if len(trades) == 0 {
		return 0
	}
	sum := 0.0
	for _, t := range trades {
		sum += t.PnLPercentage
	}
	return sum / float64(len(trades))
}

// formatHold renders hold hours as "1d 3h 30m".
func formatHold(hours float64) string {
	d := int(hours / 24)
	h := int(hours) % 24
	m := int(math.Mod(hours, 1) * 60)
	return fmt.Sprintf("%dd %dh %dm", d, h, m)
}
