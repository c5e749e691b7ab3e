package demo

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"trade-coach/internal/tradebook"
)

// base prices and ISINs for the liquid NSE names the demo leans on.
// Unknown symbols get a synthetic ISIN and a mid-range base price.
var knownStocks = map[string]struct {
	isin string
	base float64
}{
	"RELIANCE":   {"INE002A01018", 2900},
	"TCS":        {"INE467B01029", 3850},
	"INFY":       {"INE009A01021", 1550},
	"HDFCBANK":   {"INE040A01034", 1650},
	"ICICIBANK":  {"INE090A01021", 1150},
	"SBIN":       {"INE062A01020", 820},
	"TATAMOTORS": {"INE155A01022", 980},
}

// Options tunes the synthetic tradebook.
type Options struct {
	Symbols []string
	// buy/sell pairs to generate
	Trades int
	// calendar span ending today
	Days int
	// fraction of pairs that close green
	WinRatePct float64
	// fraction of pairs closed the same session, the rest swing for days
	IntradayBias float64
	// fixed seed reproduces the exact same tradebook
	Seed int64
	// live quotes to anchor the walk on, keyed by symbol; symbols
	// absent here fall back to the built-in base prices
	BasePrices map[string]float64
}

func (o *Options) defaults() {
	if len(o.Symbols) == 0 {
		o.Symbols = []string{"RELIANCE", "TCS", "INFY", "HDFCBANK", "ICICIBANK"}
	}
	if o.Trades <= 0 {
		o.Trades = 40
	}
	if o.Days <= 0 {
		o.Days = 30
	}
	if o.WinRatePct <= 0 {
		o.WinRatePct = 58
	}
	if o.IntradayBias <= 0 {
		o.IntradayBias = 0.6
	}
}

// Generator produces a synthetic Zerodha-shaped tradebook: paired buys and
// sells over real market hours with a target win rate, for demoing the
// coach without an account.
type Generator struct {
	opts    Options
	rng     *rand.Rand
	tradeID int64
	orderID int64
}

func NewGenerator(opts Options) *Generator {
	opts.defaults()
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{
		opts:    opts,
		rng:     rand.New(rand.NewSource(seed)),
		tradeID: 1000000,
		orderID: 2000000000000000000,
	}
}

// Rows generates the tradebook rows, buys and sells interleaved in
// execution-time order as a broker export would be.
func (g *Generator) Rows() []tradebook.Row {
	prices := g.simulatePrices()

	var rows []tradebook.Row
	day := g.firstTradingDay()
	pairsPerDay := g.pairsPerDay()

	generated := 0
	for generated < g.opts.Trades {
		// an active trader still skips days
		if g.rng.Float64() < 0.3 {
			day = nextTradingDay(day)
			continue
		}
		for i := 0; i < pairsPerDay && generated < g.opts.Trades; i++ {
			symbol := g.opts.Symbols[g.rng.Intn(len(g.opts.Symbols))]
			entry := g.entryTime(day)
			entryPrice := prices.at(symbol, entry)

			win := g.rng.Float64()*100 < g.opts.WinRatePct
			exit, exitPrice := g.exit(entry, entryPrice, win)

			qty := g.quantity()
			rows = append(rows, g.row(symbol, "buy", qty, entryPrice, entry))
			rows = append(rows, g.row(symbol, "sell", qty, exitPrice, exit))
			generated++
		}
		day = nextTradingDay(day)
	}
	return rows
}

// simulatePrices builds a per-symbol hourly random walk over the window,
// anchored on live quotes when the caller supplied them. The walk itself
// stays deterministic under a fixed seed.
type priceWalk struct {
	start  time.Time
	series map[string][]float64
}

func (g *Generator) simulatePrices() *priceWalk {
	start := g.firstTradingDay()
	hours := g.opts.Days * 24
	pw := &priceWalk{start: start, series: make(map[string][]float64, len(g.opts.Symbols))}
	for _, symbol := range g.opts.Symbols {
		base := 1000.0
		if s, ok := knownStocks[symbol]; ok {
			base = s.base
		}
		if live, ok := g.opts.BasePrices[symbol]; ok && live > 0 {
			base = live
		}
		series := make([]float64, hours)
		price := base
		for i := range series {
			price *= 1 + g.rng.NormFloat64()*0.003
			if price < base*0.7 {
				price = base * 0.7
			}
			series[i] = price
		}
		pw.series[symbol] = series
	}
	return pw
}

func (pw *priceWalk) at(symbol string, t time.Time) float64 {
	series := pw.series[symbol]
	idx := int(t.Sub(pw.start).Hours())
	if idx < 0 {
		idx = 0
	}
	if idx >= len(series) {
		idx = len(series) - 1
	}
	return math.Round(series[idx]*100) / 100
}

func (g *Generator) firstTradingDay() time.Time {
	day := time.Now().In(tradebook.IST).AddDate(0, 0, -g.opts.Days)
	day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, tradebook.IST)
	for day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
		day = day.AddDate(0, 0, 1)
	}
	return day
}

func (g *Generator) pairsPerDay() int {
	// roughly 70% of days are traded
	tradedDays := float64(g.opts.Days) * 5 / 7 * 0.7
	per := int(math.Ceil(float64(g.opts.Trades) / math.Max(tradedDays, 1)))
	if per < 1 {
		per = 1
	}
	return per
}

// entryTime picks a session slot with the observed 40/35/25 morning,
// afternoon, late split. Market hours are 9:15 to 15:30 IST.
func (g *Generator) entryTime(day time.Time) time.Time {
	open := time.Date(day.Year(), day.Month(), day.Day(), 9, 15, 0, 0, tradebook.IST)
	var offsetMin int
	switch r := g.rng.Float64(); {
	case r < 0.40:
		// 9:15 - 12:00
		offsetMin = g.rng.Intn(165)
	case r < 0.75:
		// 12:00 - 15:00
		offsetMin = 165 + g.rng.Intn(180)
	default:
		// 15:00 - 15:25
		offsetMin = 345 + g.rng.Intn(25)
	}
	return open.Add(time.Duration(offsetMin) * time.Minute)
}

func (g *Generator) exit(entry time.Time, entryPrice float64, win bool) (time.Time, float64) {
	var exit time.Time
	if g.rng.Float64() < g.opts.IntradayBias {
		exit = entry.Add(time.Duration(30+g.rng.Intn(330)) * time.Minute)
		mktClose := time.Date(entry.Year(), entry.Month(), entry.Day(), 15, 30, 0, 0, tradebook.IST)
		if exit.After(mktClose) {
			// spill to next morning
			next := nextTradingDay(entry)
			exit = time.Date(next.Year(), next.Month(), next.Day(), 9+g.rng.Intn(3), g.rng.Intn(60), 0, 0, tradebook.IST)
		}
	} else {
		next := entry.AddDate(0, 0, 1+g.rng.Intn(7))
		for next.Weekday() == time.Saturday || next.Weekday() == time.Sunday {
			next = next.AddDate(0, 0, 1)
		}
		exit = time.Date(next.Year(), next.Month(), next.Day(), 9+g.rng.Intn(6), g.rng.Intn(31), 0, 0, tradebook.IST)
	}

	var exitPrice float64
	if win {
		exitPrice = entryPrice * (1 + 0.005 + g.rng.Float64()*0.045)
	} else {
		exitPrice = entryPrice * (1 - 0.005 - g.rng.Float64()*0.035)
	}
	return exit, math.Round(exitPrice*100) / 100
}

func (g *Generator) quantity() float64 {
	// gamma-ish skew around 25 shares
	q := 1 + int(g.rng.ExpFloat64()*20)
	if q > 200 {
		q = 200
	}
	return float64(q)
}

func (g *Generator) row(symbol, side string, qty, price float64, ts time.Time) tradebook.Row {
	isin := "INE000DEMO01"
	if s, ok := knownStocks[symbol]; ok {
		isin = s.isin
	}
	g.tradeID++
	g.orderID++
	return tradebook.Row{
		Symbol:             symbol,
		ISIN:               isin,
		TradeDate:          ts.Format("2006-01-02"),
		Exchange:           "NSE",
		Segment:            "EQ",
		Series:             "EQ",
		TradeType:          side,
		Auction:            "false",
		Quantity:           fmt.Sprintf("%g", qty),
		Price:              fmt.Sprintf("%.2f", price),
		TradeID:            fmt.Sprintf("%d", g.tradeID),
		OrderID:            fmt.Sprintf("%d", g.orderID),
		OrderExecutionTime: ts.Format("2006-01-02T15:04:05"),
	}
}

func nextTradingDay(day time.Time) time.Time {
	next := day.AddDate(0, 0, 1)
	for next.Weekday() == time.Saturday || next.Weekday() == time.Sunday {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
