package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"trade-coach/internal/logger"
	"trade-coach/internal/store"
	"trade-coach/internal/tradebook"
)

// kiteimport pulls the day's executions from the Zerodha Kite API and
// saves them as a tradebook CSV the coach can replay later.
func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	output := flag.String("output", "kite_tradebook.csv", "Output CSV path")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := store.LoadConfig(*configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			fmt.Printf("Error loading config: %v\n", err)
			os.Exit(1)
		}
		cfg = store.DefaultConfig()
	}

	if err := logger.Init(); err != nil {
		fmt.Printf("Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	ctx := context.Background()
	defer logger.Shutdown(ctx)

	src, err := tradebook.NewKiteSource(os.Getenv(cfg.Kite.APIKeyEnv), os.Getenv(cfg.Kite.AccessTokenEnv))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		fmt.Printf("Set %s and %s in the environment or a .env file.\n", cfg.Kite.APIKeyEnv, cfg.Kite.AccessTokenEnv)
		os.Exit(1)
	}

	execs, err := src.Executions(ctx)
	if err != nil {
		logger.ErrorWithErr(ctx, "Kite import failed", err)
		fmt.Printf("Error fetching executions: %v\n", err)
		os.Exit(1)
	}
	if len(execs) == 0 {
		fmt.Println("No executions found for today.")
		return
	}

	if err := tradebook.WriteFile(*output, tradebook.Rows(execs)); err != nil {
		fmt.Printf("Error writing tradebook: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %d executions to %s\n", len(execs), *output)
}
