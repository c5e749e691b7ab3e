package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"trade-coach/internal/insights"
	"trade-coach/internal/interfaces"
	"trade-coach/internal/journal"
	"trade-coach/internal/logger"
	"trade-coach/internal/marketdata"
	"trade-coach/internal/marketdata/mdobs"
	"trade-coach/internal/matcher"
	"trade-coach/internal/report"
	"trade-coach/internal/store"
	"trade-coach/internal/tradebook"
	"trade-coach/internal/types"
)

type runOptions struct {
	TradebookPath string
	UseKite       bool
	NoMarketData  bool
}

// loadSetup loads env and config. A missing config file falls back to
// defaults so `coach -tradebook x.csv` works with zero setup.
func loadSetup(configPath string) (*store.Config, error) {
	_ = godotenv.Load()

	cfg, err := store.LoadConfig(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return store.DefaultConfig(), nil
		}
		return nil, err
	}
	return cfg, nil
}

func compressOldJournals(ctx context.Context, cfg *store.Config) {
	if cfg.JournalDir != "" {
		os.Setenv("COACH_JOURNAL_DIR", cfg.JournalDir)
	}
	if err := journal.CompressOlder(cfg.JournalRetentionDays); err != nil {
		logger.Warn(ctx, "Failed to compress old journals", "error", err.Error())
	}
}

// runCoach is the whole pipeline: load executions, match them, summarize,
// derive insights and cards, assemble the report. Returns the report and
// the raw execution count.
func runCoach(ctx context.Context, cfg *store.Config, opts runOptions) (*report.Report, int, error) {
	timer := logger.StartOperation(ctx, "coach.run", "tradebook", opts.TradebookPath, "kite", opts.UseKite)
	ctx = timer.Context()

	execs, source, err := loadExecutions(ctx, cfg, opts)
	if err != nil {
		timer.EndWithError(err)
		return nil, 0, err
	}
	if len(execs) == 0 {
		err := fmt.Errorf("no valid executions in %s", source)
		timer.EndWithError(err)
		return nil, 0, err
	}

	m := matcher.New()
	trades, unmatched, err := m.Match(ctx, execs)
	if err != nil {
		timer.EndWithError(err)
		return nil, 0, fmt.Errorf("matching failed: %w", err)
	}
	summary := matcher.Summarize(trades)

	fetcher, sim := initializeMarketData(ctx, cfg, opts)

	gen := insights.NewGenerator(insightConfig(cfg), sim)
	ins := gen.Generate(ctx, trades)
	cards := insights.NewCoach().Cards(ctx, trades)

	rep := &report.Report{
		GeneratedAt:    time.Now().In(tradebook.IST),
		RunID:          uuid.NewString(),
		Source:         source,
		Summary:        summary,
		Trades:         trades,
		OpenLots:       m.OpenLots(),
		UnmatchedSells: unmatched,
		Insights:       ins,
		Cards:          cards,
	}
	if fetcher != nil {
		rep.SourceStats = fetcher.SourceStatus()
	}

	timer.End("executions", len(execs), "closed_trades", len(trades), "insights", len(ins))
	return rep, len(execs), nil
}

func loadExecutions(ctx context.Context, cfg *store.Config, opts runOptions) ([]types.Execution, string, error) {
	if opts.UseKite {
		src, err := kiteSource(cfg)
		if err != nil {
			return nil, "", err
		}
		execs, err := src.Executions(ctx)
		if err != nil {
			return nil, "", err
		}
		return execs, "kite", nil
	}

	result, err := tradebook.NewParser().ParseFile(opts.TradebookPath)
	if err != nil {
		return nil, "", fmt.Errorf("parsing tradebook: %w", err)
	}
	if result.Dropped > 0 {
		logger.Warn(ctx, "Dropped malformed tradebook rows", "dropped", result.Dropped)
	}
	return result.Executions, opts.TradebookPath, nil
}

func kiteSource(cfg *store.Config) (interfaces.ExecutionSource, error) {
	apiKey := os.Getenv(cfg.Kite.APIKeyEnv)
	accessToken := os.Getenv(cfg.Kite.AccessTokenEnv)
	return tradebook.NewKiteSource(apiKey, accessToken)
}

// initializeMarketData wires the price-source chain and exit simulator,
// or nothing at all for offline runs.
func initializeMarketData(ctx context.Context, cfg *store.Config, opts runOptions) (*marketdata.Fetcher, interfaces.ExitSimulator) {
	if opts.NoMarketData || !cfg.MarketData.Enabled {
		logger.Info(ctx, "Market data disabled - skipping exit-scenario analysis")
		return nil, nil
	}

	fetcher := marketdata.NewFetcher(marketdata.Options{
		CacheDir:        cfg.MarketData.CacheDir,
		CacheTTL:        time.Duration(cfg.MarketData.CacheTTLHours) * time.Hour,
		SkipSymbols:     cfg.MarketData.SkipSymbols,
		AlphaVantageKey: os.Getenv(cfg.MarketData.AlphaVantageEnv),
	})
	sim := mdobs.WrapSimulator(marketdata.NewAnalyzer(fetcher))
	return fetcher, sim
}

func insightConfig(cfg *store.Config) insights.Config {
	c := insights.DefaultConfig()
	if cfg.Insights.MinPeriodTrades > 0 {
		c.MinPeriodTrades = cfg.Insights.MinPeriodTrades
	}
	if cfg.Insights.SessionGapPct > 0 {
		c.SessionGapPct = cfg.Insights.SessionGapPct
	}
	if cfg.Insights.ProlongedLossHours > 0 {
		c.ProlongedLossHours = cfg.Insights.ProlongedLossHours
	}
	if cfg.Insights.LossStreakFloor > 0 {
		c.LossStreakFloor = cfg.Insights.LossStreakFloor
	}
	if cfg.Insights.HighFrequencyTrades > 0 {
		c.HighFrequencyTrades = cfg.Insights.HighFrequencyTrades
	}
	if cfg.Insights.ConsistentWinRatePct > 0 {
		c.ConsistentWinRatePct = cfg.Insights.ConsistentWinRatePct
	}
	if cfg.Insights.SimulationSample > 0 {
		c.SimulationSample = cfg.Insights.SimulationSample
	}
	return c
}
