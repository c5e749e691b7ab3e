package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"trade-coach/internal/journal"
	"trade-coach/internal/logger"
	"trade-coach/internal/report"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	tradebookPath := flag.String("tradebook", "", "path to tradebook CSV (required unless -kite)")
	useKite := flag.Bool("kite", false, "pull today's executions from the Kite API instead of a CSV")
	format := flag.String("format", "text", "output format: text, json, or csv")
	outputFile := flag.String("output", "", "save report to this file (optional, in addition to the output dir)")
	noMarketData := flag.Bool("no-marketdata", false, "skip price-data lookups (offline run)")
	flag.Parse()

	if *tradebookPath == "" && !*useKite {
		fmt.Println("Error: -tradebook is required (or use -kite)")
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := loadSetup(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(); err != nil {
		fmt.Printf("Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	ctx := context.Background()
	defer logger.Shutdown(ctx)

	compressOldJournals(ctx, cfg)

	reportFormat, err := report.ParseFormat(*format)
	if err != nil {
		fmt.Printf("Unknown format %q. Using text format.\n", *format)
		reportFormat = report.FormatText
	}

	rep, execCount, err := runCoach(ctx, cfg, runOptions{
		TradebookPath: *tradebookPath,
		UseKite:       *useKite,
		NoMarketData:  *noMarketData,
	})
	if err != nil {
		logger.ErrorWithErr(ctx, "Coach run failed", err)
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	reporter := report.NewReporter(cfg.OutputDir)
	content, err := reporter.Generate(rep, reportFormat)
	if err != nil {
		fmt.Printf("Error generating report: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(content)

	savedPath, err := reporter.Save(rep, reportFormat)
	if err != nil {
		logger.Warn(ctx, "Failed to save report", "error", err.Error())
	} else {
		fmt.Printf("Report saved to %s\n", savedPath)
	}

	if *outputFile != "" {
		if err := os.WriteFile(*outputFile, []byte(content), 0644); err != nil {
			fmt.Printf("Error saving report to %s: %v\n", *outputFile, err)
			os.Exit(1)
		}
	}

	if err := journalRun(rep, execCount, savedPath); err != nil {
		logger.Warn(ctx, "Failed to journal run", "error", err.Error())
	}
}

func journalRun(rep *report.Report, execCount int, savedPath string) error {
	return journal.Append(journal.Entry{
		RunID:          rep.RunID,
		Tradebook:      rep.Source,
		Executions:     execCount,
		ClosedTrades:   len(rep.Trades),
		OpenLots:       len(rep.OpenLots),
		UnmatchedSells: len(rep.UnmatchedSells),
		WinRate:        rep.Summary.WinRate,
		TotalPnL:       rep.Summary.TotalPnL,
		Insights:       len(rep.Insights),
		ReportPath:     savedPath,
	})
}
