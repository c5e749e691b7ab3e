package insights

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/montanaflynn/stats"

	"trade-coach/internal/interfaces"
	"trade-coach/internal/logger"
	"trade-coach/internal/types"
)

// Config tunes the thresholds behind each insight rule. The defaults match
// an active retail intraday/swing account; a low-frequency account may want
// larger windows.
type Config struct {
	// minimum trades in both the morning and afternoon buckets before
	// comparing session win rates
	MinPeriodTrades int
	// win-rate gap in percentage points that makes a session comparison
	// worth surfacing
	SessionGapPct float64
	// a loss held past this many hours counts as prolonged
	ProlongedLossHours float64
	// losing streak length that triggers the risk warning
	LossStreakFloor int
	// trades on one symbol before it qualifies for the consistency check
	HighFrequencyTrades int
	// win rate that marks a high-frequency symbol as a consistent winner
	ConsistentWinRatePct float64
	// how many trades to replay against real price data
	SimulationSample int
}

func DefaultConfig() Config {
	return Config{
		MinPeriodTrades:      5,
		SessionGapPct:        15,
		ProlongedLossHours:   24,
		LossStreakFloor:      3,
		HighFrequencyTrades:  5,
		ConsistentWinRatePct: 60,
		SimulationSample:     10,
	}
}

// Generator derives coaching insights from closed trades. The exit
// simulator is optional; without one the price-data rules are skipped.
type Generator struct {
	cfg Config
	sim interfaces.ExitSimulator
}

func NewGenerator(cfg Config, sim interfaces.ExitSimulator) *Generator {
	return &Generator{cfg: cfg, sim: sim}
}

// Generate runs every rule over the trades and returns the insights that
// fired, in rule order. An empty trade list yields no insights.
func (g *Generator) Generate(ctx context.Context, trades []types.ClosedTrade) []types.Insight {
	if len(trades) == 0 {
		return nil
	}

	timer := logger.StartOperation(ctx, "insights.generate", "trades", len(trades))

	var out []types.Insight
	out = append(out, g.exitTiming(trades)...)
	out = append(out, g.entryTiming(trades)...)
	out = append(out, g.stockPerformance(trades)...)
	out = append(out, g.riskPatterns(trades)...)
	out = append(out, g.behavioralPatterns(trades)...)
	out = append(out, g.exitOpportunities(ctx, trades)...)

	timer.End("insights", len(out))
	return out
}

// exitTiming compares quick winners against held winners, and all losses
// against prolonged ones.
func (g *Generator) exitTiming(trades []types.ClosedTrade) []types.Insight {
	var out []types.Insight

	var shortWins, longWins, losses, prolonged []float64
	var prolongedCount int
	for _, t := range trades {
		switch t.Result {
		case types.Win:
			if t.HoldHours < 2 {
				shortWins = append(shortWins, t.PnLPercentage)
			} else {
				longWins = append(longWins, t.PnLPercentage)
			}
		case types.Loss:
			losses = append(losses, t.PnLPercentage)
			if t.HoldHours > g.cfg.ProlongedLossHours {
				prolonged = append(prolonged, t.PnLPercentage)
				prolongedCount++
			}
		}
	}

	if len(shortWins) > 0 && len(longWins) > 0 {
		shortAvg, _ := stats.Mean(shortWins)
		longAvg, _ := stats.Mean(longWins)
		if longAvg > shortAvg*1.5 {
			out = append(out, types.Insight{
				Title: "Consider Holding Winners Longer",
				Type:  "exit_optimization",
				Description: fmt.Sprintf("Your winning trades held for <2 hours average %.2f%% return, while those held longer average %.2f%% return.",
					shortAvg, longAvg),
				Action: "Consider using trailing stop-loss instead of quick profit booking.",
				Data: map[string]any{
					"short_duration_avg":    round2(shortAvg),
					"longer_duration_avg":   round2(longAvg),
					"potential_improvement": round2(longAvg - shortAvg),
				},
			})
		}
	}

	if len(losses) > 0 && len(prolonged) > 0 {
		avgLoss, _ := stats.Mean(losses)
		prolongedAvg, _ := stats.Mean(prolonged)
		// losses are negative, so "worse" means more negative
		if prolongedAvg < avgLoss*1.5 {
			out = append(out, types.Insight{
				Title: "Cut Losses Earlier",
				Type:  "exit_optimization",
				Description: fmt.Sprintf("Losses held over %.0f hours average %.2f%% loss vs %.2f%% for all losses.",
					g.cfg.ProlongedLossHours, prolongedAvg, avgLoss),
				Action: "Implement strict stop-loss at -2% to -3% to prevent larger drawdowns.",
				Data: map[string]any{
					"avg_loss":        round2(avgLoss),
					"prolonged_loss":  round2(prolongedAvg),
					"trades_affected": prolongedCount,
				},
			})
		}
	}
	return out
}

// entryTiming compares morning against afternoon entries and weekday P&L.
func (g *Generator) entryTiming(trades []types.ClosedTrade) []types.Insight {
	var out []types.Insight

	var morning, afternoon []types.ClosedTrade
	for _, t := range trades {
		switch h := t.EntryDatetime.Hour(); {
		case h < 10:
			morning = append(morning, t)
		case h >= 14:
			afternoon = append(afternoon, t)
		}
	}

	if len(morning) > g.cfg.MinPeriodTrades && len(afternoon) > g.cfg.MinPeriodTrades {
		morningRate := winRate(morning)
		afternoonRate := winRate(afternoon)
		if math.Abs(morningRate-afternoonRate) > g.cfg.SessionGapPct {
			better, betterTitle := "morning (9-10 AM)", "Morning (9-10 AM)"
			if afternoonRate > morningRate {
				better, betterTitle = "afternoon (2 PM onwards)", "Afternoon (2 PM Onwards)"
			}
			out = append(out, types.Insight{
				Title: fmt.Sprintf("Better Performance In %s", betterTitle),
				Type:  "timing",
				Description: fmt.Sprintf("Your win rate in %s is %.1f%% compared to %.1f%% in the other period.",
					better, math.Max(morningRate, afternoonRate), math.Min(morningRate, afternoonRate)),
				Action: fmt.Sprintf("Focus your trading activity during %s when you perform better.", better),
				Data: map[string]any{
					"morning_win_rate":   round1(morningRate),
					"afternoon_win_rate": round1(afternoonRate),
					"morning_trades":     len(morning),
					"afternoon_trades":   len(afternoon),
				},
			})
		}
	}

	weekdayPnL := map[time.Weekday]float64{}
	for _, t := range trades {
		weekdayPnL[t.EntryDatetime.Weekday()] += t.GrossPnL
	}
	if len(weekdayPnL) >= 3 {
		var bestDay, worstDay time.Weekday
		bestPnL := math.Inf(-1)
		worstPnL := math.Inf(1)
		for d := time.Sunday; d <= time.Saturday; d++ {
			pnl, ok := weekdayPnL[d]
			if !ok {
				continue
			}
			if pnl > bestPnL {
				bestPnL, bestDay = pnl, d
			}
			if pnl < worstPnL {
				worstPnL, worstDay = pnl, d
			}
		}
		if bestPnL > 0 && worstPnL < 0 {
			out = append(out, types.Insight{
				Title: fmt.Sprintf("Best Trading Day: %s", bestDay),
				Type:  "timing",
				Description: fmt.Sprintf("You make %s on %s but lose %s on %s.",
					inr(bestPnL), bestDay, inr(-worstPnL), worstDay),
				Action: fmt.Sprintf("Consider reducing position size or avoiding trades on %s.", worstDay),
				Data: map[string]any{
					"best_day":      bestDay.String(),
					"worst_day":     worstDay.String(),
					"best_day_pnl":  math.Round(bestPnL),
					"worst_day_pnl": math.Round(worstPnL),
				},
			})
		}
	}
	return out
}

// stockPerformance surfaces the best symbol, the worst repeat offender, and
// consistently profitable high-frequency symbols.
func (g *Generator) stockPerformance(trades []types.ClosedTrade) []types.Insight {
	var out []types.Insight
	bySymbol := aggregateSymbols(trades)

	var best, worst *symbolStats
	for i := range bySymbol {
		s := &bySymbol[i]
		if s.totalPnL > 0 && (best == nil || s.totalPnL > best.totalPnL) {
			best = s
		}
		if s.totalPnL < 0 && (worst == nil || s.totalPnL < worst.totalPnL) {
			worst = s
		}
	}

	if best != nil {
		out = append(out, types.Insight{
			Title: fmt.Sprintf("Top Performing Stock: %s", best.symbol),
			Type:  "stock_selection",
			Description: fmt.Sprintf("%s generated %s with %.1f%% win rate.",
				best.symbol, inr(best.totalPnL), best.winRate),
			Action: fmt.Sprintf("Consider increasing allocation to %s while maintaining risk management.", best.symbol),
			Data: map[string]any{
				"symbol":      best.symbol,
				"total_pnl":   math.Round(best.totalPnL),
				"win_rate":    round1(best.winRate),
				"trade_count": best.count,
			},
		})
	}

	if worst != nil && worst.count >= 3 {
		out = append(out, types.Insight{
			Title: fmt.Sprintf("Avoid Trading: %s", worst.symbol),
			Type:  "stock_selection",
			Description: fmt.Sprintf("%s caused losses of %s with only %.1f%% win rate.",
				worst.symbol, inr(-worst.totalPnL), worst.winRate),
			Action: fmt.Sprintf("Avoid %s or revise your strategy for this stock.", worst.symbol),
			Data: map[string]any{
				"symbol":      worst.symbol,
				"total_loss":  math.Round(-worst.totalPnL),
				"win_rate":    round1(worst.winRate),
				"trade_count": worst.count,
			},
		})
	}

	var consistent []string
	var consistentRates []float64
	for _, s := range bySymbol {
		if s.count >= g.cfg.HighFrequencyTrades && s.winRate > g.cfg.ConsistentWinRatePct {
			consistent = append(consistent, s.symbol)
			consistentRates = append(consistentRates, s.winRate)
		}
	}
	if len(consistent) > 0 {
		sample := consistent
		if len(sample) > 3 {
			sample = sample[:3]
		}
		avgRate, _ := stats.Mean(consistentRates)
		out = append(out, types.Insight{
			Title: "Consistent Winners Found",
			Type:  "stock_selection",
			Description: fmt.Sprintf("Stocks like %s show >%.0f%% win rate with multiple trades.",
				strings.Join(sample, ", "), g.cfg.ConsistentWinRatePct),
			Action: "Focus on these high-probability setups and increase position sizing gradually.",
			Data: map[string]any{
				"stocks":       consistent,
				"avg_win_rate": round1(avgRate),
			},
		})
	}
	return out
}

// riskPatterns checks loss-to-profit skew, losing streaks and daily P&L
// volatility.
func (g *Generator) riskPatterns(trades []types.ClosedTrade) []types.Insight {
	var out []types.Insight

	maxLoss, maxProfit := trades[0].GrossPnL, trades[0].GrossPnL
	for _, t := range trades[1:] {
		if t.GrossPnL < maxLoss {
			maxLoss = t.GrossPnL
		}
		if t.GrossPnL > maxProfit {
			maxProfit = t.GrossPnL
		}
	}
	if maxProfit > 0 && math.Abs(maxLoss) > maxProfit*2 {
		out = append(out, types.Insight{
			Title: "Risk-Reward Imbalance Detected",
			Type:  "risk_management",
			Description: fmt.Sprintf("Your largest loss (%s) is %.1fx your largest profit (%s).",
				inr(-maxLoss), math.Abs(maxLoss)/maxProfit, inr(maxProfit)),
			Action: "Implement position sizing rules: risk max 2% per trade, aim for 1:2 risk-reward ratio.",
			Data: map[string]any{
				"max_loss":   math.Round(maxLoss),
				"max_profit": math.Round(maxProfit),
				"ratio":      round1(math.Abs(maxLoss) / maxProfit),
			},
		})
	}

	if streak := longestLossStreak(trades); streak >= g.cfg.LossStreakFloor {
		out = append(out, types.Insight{
			Title: fmt.Sprintf("Streak Of %d Consecutive Losses", streak),
			Type:  "risk_management",
			Description: fmt.Sprintf("You had %d losses in a row, indicating possible tilt or poor market conditions.",
				streak),
			Action: "After 2 consecutive losses, reduce position size by 50% or take a break.",
			Data:   map[string]any{"max_consecutive_losses": streak},
		})
	}

	dailyPnL := map[string]float64{}
	for _, t := range trades {
		dailyPnL[t.ExitDatetime.Format("2006-01-02")] += t.GrossPnL
	}
	if len(dailyPnL) > 5 {
		days := make([]float64, 0, len(dailyPnL))
		for _, pnl := range dailyPnL {
			days = append(days, pnl)
		}
		vol, _ := stats.StandardDeviation(days)
		avg, _ := stats.Mean(days)
		if vol > math.Abs(avg)*3 {
			out = append(out, types.Insight{
				Title: "High Daily P&L Volatility",
				Type:  "risk_management",
				Description: fmt.Sprintf("Your daily P&L swings (±%s) are very high compared to average (%s).",
					inr(vol), inr(avg)),
				Action: "Reduce position sizes to smooth out daily returns and reduce emotional stress.",
				Data: map[string]any{
					"daily_volatility": math.Round(vol),
					"avg_daily_pnl":    math.Round(avg),
				},
			})
		}
	}
	return out
}

// behavioralPatterns looks for loser-holding, overtrading a pet symbol and
// a recent win-rate slump.
func (g *Generator) behavioralPatterns(trades []types.ClosedTrade) []types.Insight {
	var out []types.Insight

	var wins, losses []float64
	for _, t := range trades {
		if t.Result == types.Win {
			wins = append(wins, t.GrossPnL)
		} else {
			losses = append(losses, math.Abs(t.GrossPnL))
		}
	}
	if len(wins) > 0 && len(losses) > 0 {
		avgWin, _ := stats.Mean(wins)
		avgLoss, _ := stats.Mean(losses)
		if avgWin > 0 && avgLoss > avgWin*1.5 {
			out = append(out, types.Insight{
				Title: "Holding Losers Too Long",
				Type:  "behavioral",
				Description: fmt.Sprintf("Your average loss (%s) is %.1fx your average win (%s).",
					inr(avgLoss), avgLoss/avgWin, inr(avgWin)),
				Action: "Set stop-loss orders immediately after entry. Never move stop-loss further away.",
				Data: map[string]any{
					"avg_win":  math.Round(avgWin),
					"avg_loss": math.Round(avgLoss),
					"ratio":    round1(avgLoss / avgWin),
				},
			})
		}
	}

	bySymbol := aggregateSymbols(trades)
	var topVolume *symbolStats
	for i := range bySymbol {
		s := &bySymbol[i]
		if topVolume == nil || s.quantity > topVolume.quantity {
			topVolume = s
		}
	}
	if topVolume != nil && topVolume.totalPnL < 0 {
		out = append(out, types.Insight{
			Title: fmt.Sprintf("Overtrading %s", topVolume.symbol),
			Type:  "behavioral",
			Description: fmt.Sprintf("You trade %s the most but have lost %s on it.",
				topVolume.symbol, inr(-topVolume.totalPnL)),
			Action: "Reduce frequency of trades in familiar but unprofitable stocks. Diversify your watchlist.",
			Data: map[string]any{
				"symbol":         topVolume.symbol,
				"total_quantity": topVolume.quantity,
				"total_loss":     math.Round(-topVolume.totalPnL),
			},
		})
	}

	if len(trades) > 20 {
		recent := trades[len(trades)-10:]
		older := trades[:len(trades)-10]
		recentRate := winRate(recent)
		olderRate := winRate(older)
		if recentRate < olderRate-20 {
			out = append(out, types.Insight{
				Title: "Recent Performance Decline",
				Type:  "behavioral",
				Description: fmt.Sprintf("Your recent win rate (%.1f%%) is much lower than earlier (%.1f%%).",
					recentRate, olderRate),
				Action: "Take a break to reset. Review what changed in your strategy or market conditions.",
				Data: map[string]any{
					"recent_win_rate": round1(recentRate),
					"older_win_rate":  round1(olderRate),
					"decline":         round1(olderRate - recentRate),
				},
			})
		}
	}
	return out
}

// exitOpportunities replays a sample of trades against real price data to
// quantify early exits and trailing-stop benefits. Skipped when no
// simulator is wired (offline runs).
func (g *Generator) exitOpportunities(ctx context.Context, trades []types.ClosedTrade) []types.Insight {
	if g.sim == nil {
		return nil
	}

	sample := trades
	if len(sample) > g.cfg.SimulationSample {
		sample = sample[:g.cfg.SimulationSample]
	}

	type miss struct {
		symbol string
		amount float64
	}
	var misses []miss
	var totalMissed float64
	var trailingBenefits []float64

	for _, t := range sample {
		scenarios, err := g.sim.ExitScenarios(ctx, t)
		if err != nil {
			logger.Warn(ctx, "Could not analyze exit opportunities", "symbol", t.Symbol, "error", err.Error())
			continue
		}
		if scenarios.BestLateExit != nil {
			latePnL := scenarios.BestLateExit.PotentialPnL
			if latePnL > t.GrossPnL*1.5 {
				m := miss{symbol: t.Symbol, amount: latePnL - t.GrossPnL}
				misses = append(misses, m)
				totalMissed += m.amount
			}
		}
		if scenarios.TrailingStop != nil {
			if benefit := scenarios.TrailingStop.PotentialPnL - t.GrossPnL; benefit > 0 {
				trailingBenefits = append(trailingBenefits, benefit)
			}
		}
	}

	var out []types.Insight
	if len(misses) > 0 {
		worst := misses[0]
		for _, m := range misses[1:] {
			if m.amount > worst.amount {
				worst = m
			}
		}
		out = append(out, types.Insight{
			Title: "Significant Exit Opportunities Missed",
			Type:  "exit_optimization",
			Description: fmt.Sprintf("Based on actual price data, you missed %s in potential profits by exiting too early. Worst case: %s - missed %s",
				inr(totalMissed), worst.symbol, inr(worst.amount)),
			Action: "Consider holding winning positions longer or using trailing stops to capture more upside.",
			Data: map[string]any{
				"total_missed_amount":  math.Round(totalMissed),
				"avg_missed_per_trade": math.Round(totalMissed / float64(len(misses))),
				"trades_analyzed":      len(misses),
				"worst_miss_symbol":    worst.symbol,
				"worst_miss_amount":    math.Round(worst.amount),
			},
		})
	}
	if len(trailingBenefits) > 0 {
		total, _ := stats.Sum(trailingBenefits)
		out = append(out, types.Insight{
			Title: "Trailing Stop Strategy Would Help",
			Type:  "exit_optimization",
			Description: fmt.Sprintf("A 2%% trailing stop on %d trades would have earned %s more. Average benefit: %s per applicable trade.",
				len(trailingBenefits), inr(total), inr(total/float64(len(trailingBenefits)))),
			Action: "Implement trailing stop-loss orders to automatically capture more profits while limiting downside.",
			Data: map[string]any{
				"total_additional_profit": math.Round(total),
				"avg_benefit_per_trade":   math.Round(total / float64(len(trailingBenefits))),
				"applicable_trades":       len(trailingBenefits),
			},
		})
	}
	return out
}

// symbolStats is a per-symbol aggregate over closed trades.
type symbolStats struct {
	symbol   string
	totalPnL float64
	count    int
	wins     int
	winRate  float64
	quantity float64
}

// aggregateSymbols groups trades by symbol, sorted by symbol for
// deterministic output.
func aggregateSymbols(trades []types.ClosedTrade) []symbolStats {
	agg := map[string]*symbolStats{}
	for _, t := range trades {
		s, ok := agg[t.Symbol]
		if !ok {
			s = &symbolStats{symbol: t.Symbol}
			agg[t.Symbol] = s
		}
		s.totalPnL += t.GrossPnL
		s.count++
		s.quantity += t.Quantity
		if t.Result == types.Win {
			s.wins++
		}
	}
	out := make([]symbolStats, 0, len(agg))
	for _, s := range agg {
		s.winRate = float64(s.wins) / float64(s.count) * 100
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].symbol < out[j].symbol })
	return out
}

// longestLossStreak counts consecutive losses in exit order.
func longestLossStreak(trades []types.ClosedTrade) int {
	ordered := make([]types.ClosedTrade, len(trades))
	copy(ordered, trades)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ExitDatetime.Before(ordered[j].ExitDatetime)
	})

	max, cur := 0, 0
	for _, t := range ordered {
		if t.Result == types.Loss {
			cur++
			if cur > max {
				max = cur
			}
		} else {
			cur = 0
		}
	}
	return max
}

func winRate(trades []types.ClosedTrade) float64 {
	if len(trades) == 0 {
		return 0
	}
	wins := 0
	for _, t := range trades {
		if t.Result == types.Win {
			wins++
		}
	}
	return float64(wins) / float64(len(trades)) * 100
}

// inr formats a rupee amount with comma grouping, no decimals.
func inr(v float64) string {
	neg := v < 0
	s := fmt.Sprintf("%.0f", math.Abs(v))
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	if neg {
		return "-₹" + b.String()
	}
	return "₹" + b.String()
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
