// Package config loads the YAML configuration file and applies environment
// variable overrides.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/krispyensign/mutantstopbot/internal/kernel"
	"github.com/krispyensign/mutantstopbot/internal/solver"
	"github.com/krispyensign/mutantstopbot/internal/util"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the solver and the bot.
type Config struct {
	Chart   Chart         `yaml:"chart"`
	Kernel  kernel.Config `yaml:"kernel"`
	Solver  solver.Config `yaml:"solver"`
	Trading Trading       `yaml:"trading"`
	Storage Storage       `yaml:"storage"`
	Broker  Broker        `yaml:"broker"`
	Logging Logging       `yaml:"logging"`
}

// Chart selects the instrument and candle window to evaluate.
type Chart struct {
	Instrument  string `yaml:"instrument"`
	Granularity string `yaml:"granularity"`
	CandleCount int    `yaml:"candle_count"`
	DateFrom    string `yaml:"date_from"`
}

// Trading defines execution parameters for the live loop.
type Trading struct {
	// Units is the order size; MaxUnits caps it as a pre-trade risk check.
	Units    float64 `yaml:"units"`
	MaxUnits float64 `yaml:"max_units"`

	// RefreshSeconds is the pause between bot iterations.
	RefreshSeconds int `yaml:"refresh_seconds"`

	// PaperMode routes orders to the simulator instead of the brokerage.
	PaperMode bool `yaml:"paper_mode"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Broker holds credentials and endpoints for the brokerage API.
type Broker struct {
	APIKey          string `yaml:"api_key"`
	APISecret       string `yaml:"api_secret"`
	BaseURL         string `yaml:"base_url"`
	DataURL         string `yaml:"data_url"`
	RateLimitPerMin int    `yaml:"rate_limit_per_min"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, parses it,
// applies environment variable overrides, and validates the result. When
// solver window sizes are set, the chart candle count is derived from them
// (train + sample) so the fetched window exactly covers both.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if cfg.Solver.TrainSize > 0 && cfg.Solver.SampleSize > 0 {
		cfg.Chart.CandleCount = cfg.Solver.TrainSize + cfg.Solver.SampleSize
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Chart.Instrument == "" {
		return fmt.Errorf("config: chart.instrument is required")
	}
	if _, err := util.GranularityDuration(c.Chart.Granularity); err != nil {
		return fmt.Errorf("config: chart.granularity: %w", err)
	}
	if c.Chart.CandleCount <= 0 {
		return fmt.Errorf("config: chart.candle_count must be positive")
	}
	if c.Kernel.WMAPeriod <= 0 {
		return fmt.Errorf("config: kernel.wma_period must be positive")
	}
	if c.Solver.ForceEdge != "" {
		if _, err := kernel.ParseEdge(c.Solver.ForceEdge); err != nil {
			return fmt.Errorf("config: solver.force_edge: %w", err)
		}
	}
	return nil
}

// applyEnvOverrides checks well-known environment variables and overrides
// the corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Canonical Alpaca env vars used by the SDK take highest priority.
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Broker.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Broker.APISecret = v
	}
	if v := os.Getenv("APCA_API_BASE_URL"); v != "" {
		cfg.Broker.BaseURL = v
	}
}
