package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"trade-coach/internal/demo"
	"trade-coach/internal/marketdata"
	"trade-coach/internal/store"
	"trade-coach/internal/tradebook"
)

// tradegen writes a realistic demo tradebook CSV for trying the coach
// without a live brokerage export.
func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	output := flag.String("output", "demo_tradebook.csv", "Output CSV path")
	trades := flag.Int("trades", 0, "Buy/sell pairs to generate (0 uses config)")
	days := flag.Int("days", 0, "Calendar span in days (0 uses config)")
	symbols := flag.String("symbols", "", "Comma-separated symbols (empty uses config)")
	winRate := flag.Float64("win-rate", -1, "Winning pair percentage (negative uses config)")
	seed := flag.Int64("seed", 0, "Random seed (0 picks one from the clock)")
	offline := flag.Bool("offline", false, "Skip live quote lookups, use built-in base prices")
	flag.Parse()

	cfg, err := store.LoadConfig(*configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			fmt.Printf("Error loading config: %v\n", err)
			os.Exit(1)
		}
		cfg = store.DefaultConfig()
	}

	opts := demo.Options{
		Symbols:      cfg.Demo.Symbols,
		Trades:       cfg.Demo.Trades,
		Days:         cfg.Demo.Days,
		WinRatePct:   cfg.Demo.WinRatePct,
		IntradayBias: cfg.Demo.IntradayBias,
		Seed:         *seed,
	}
	if *trades > 0 {
		opts.Trades = *trades
	}
	if *days > 0 {
		opts.Days = *days
	}
	if *symbols != "" {
		opts.Symbols = splitSymbols(*symbols)
	}
	if *winRate >= 0 {
		opts.WinRatePct = *winRate
	}
	if !*offline && cfg.MarketData.Enabled {
		opts.BasePrices = livePrices(cfg, opts.Symbols)
	}

	rows := demo.NewGenerator(opts).Rows()
	if err := tradebook.WriteFile(*output, rows); err != nil {
		fmt.Printf("Error writing tradebook: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Wrote %d executions to %s\n", len(rows), *output)
	fmt.Printf("Try: coach -tradebook %s\n", *output)
}

// livePrices anchors the walk on current quotes. Any symbol that cannot
// be quoted just falls back to the generator's built-in base price.
func livePrices(cfg *store.Config, symbols []string) map[string]float64 {
	fetcher := marketdata.NewFetcher(marketdata.Options{
		CacheDir:        cfg.MarketData.CacheDir,
		CacheTTL:        time.Duration(cfg.MarketData.CacheTTLHours) * time.Hour,
		SkipSymbols:     cfg.MarketData.SkipSymbols,
		AlphaVantageKey: os.Getenv(cfg.MarketData.AlphaVantageEnv),
	})
	ctx := context.Background()

	prices := make(map[string]float64, len(symbols))
	for _, symbol := range symbols {
		if price, err := fetcher.LastPrice(ctx, symbol); err == nil {
			prices[symbol] = price
		}
	}
	return prices
}

func splitSymbols(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if sym := strings.ToUpper(strings.TrimSpace(part)); sym != "" {
			out = append(out, sym)
		}
	}
	return out
}
