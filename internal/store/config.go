package store

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	OutputDir  string `yaml:"output_dir"`
	JournalDir string `yaml:"journal_dir"`
	// journal files older than this many days get gzipped
	JournalRetentionDays int `yaml:"journal_retention_days"`

	MarketData struct {
		Enabled         bool     `yaml:"enabled"`
		CacheDir        string   `yaml:"cache_dir"`
		CacheTTLHours   int      `yaml:"cache_ttl_hours"`
		SkipSymbols     []string `yaml:"skip_symbols"`
		AlphaVantageEnv string   `yaml:"alpha_vantage_key_env"`
	} `yaml:"marketdata"`

	Insights struct {
		MinPeriodTrades      int     `yaml:"min_period_trades"`
		SessionGapPct        float64 `yaml:"session_gap_pct"`
		ProlongedLossHours   float64 `yaml:"prolonged_loss_hours"`
		LossStreakFloor      int     `yaml:"loss_streak_floor"`
		HighFrequencyTrades  int     `yaml:"high_frequency_trades"`
		ConsistentWinRatePct float64 `yaml:"consistent_win_rate_pct"`
		SimulationSample     int     `yaml:"simulation_sample"`
	} `yaml:"insights"`

	Kite struct {
		APIKeyEnv      string `yaml:"api_key_env"`
		AccessTokenEnv string `yaml:"access_token_env"`
	} `yaml:"kite"`

	Demo struct {
		Symbols      []string `yaml:"symbols"`
		Trades       int      `yaml:"trades"`
		Days         int      `yaml:"days"`
		WinRatePct   float64  `yaml:"win_rate_pct"`
		IntradayBias float64  `yaml:"intraday_bias"`
	} `yaml:"demo"`
}

func (c *Config) Validate() error {
	if c.OutputDir == "" {
		return fmt.Errorf("output_dir cannot be empty")
	}
	if c.JournalRetentionDays < 0 {
		return fmt.Errorf("journal_retention_days must be >= 0, got %d", c.JournalRetentionDays)
	}
	if c.MarketData.CacheTTLHours < 0 {
		return fmt.Errorf("marketdata.cache_ttl_hours must be >= 0, got %d", c.MarketData.CacheTTLHours)
	}
	if c.Insights.SimulationSample < 0 {
		return fmt.Errorf("insights.simulation_sample must be >= 0, got %d", c.Insights.SimulationSample)
	}
	if c.Demo.WinRatePct < 0 || c.Demo.WinRatePct > 100 {
		return fmt.Errorf("demo.win_rate_pct must be between 0-100, got %.2f", c.Demo.WinRatePct)
	}
	if c.Demo.IntradayBias < 0 || c.Demo.IntradayBias > 1 {
		return fmt.Errorf("demo.intraday_bias must be between 0-1, got %.2f", c.Demo.IntradayBias)
	}
	return nil
}

// DefaultConfig is what a run without a config file gets.
func DefaultConfig() *Config {
	c := &Config{
		OutputDir:            "reports",
		JournalDir:           "journal",
		JournalRetentionDays: 30,
	}
	c.MarketData.Enabled = true
	c.MarketData.CacheDir = ".cache/marketdata"
	c.MarketData.CacheTTLHours = 24
	c.MarketData.AlphaVantageEnv = "ALPHA_VANTAGE_API_KEY"
	c.Insights.MinPeriodTrades = 5
	c.Insights.SessionGapPct = 15
	c.Insights.ProlongedLossHours = 24
	c.Insights.LossStreakFloor = 3
	c.Insights.HighFrequencyTrades = 5
	c.Insights.ConsistentWinRatePct = 60
	c.Insights.SimulationSample = 10
	c.Kite.APIKeyEnv = "KITE_API_KEY"
	c.Kite.AccessTokenEnv = "KITE_ACCESS_TOKEN"
	c.Demo.Symbols = []string{"RELIANCE", "TCS", "INFY", "HDFCBANK", "SBIN", "TATAMOTORS"}
	c.Demo.Trades = 40
	c.Demo.Days = 30
	c.Demo.WinRatePct = 45
	c.Demo.IntradayBias = 0.7
	return c
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := DefaultConfig()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return c, nil
}
