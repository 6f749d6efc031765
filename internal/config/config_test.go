package config

import (
	"os"
	"path/filepath"
	"testing"
)

const testYAML = `
chart:
  instrument: EUR_USD
  granularity: H1
  candle_count: 500
kernel:
  wma_period: 20
  signal_buy_column: ha_close
  signal_exit_column: ha_low
  source_column: close
  exec_column: bid_close
solver:
  train_size: 4000
  sample_size: 1000
  force_edge: Deterministic
  take_profits: [0.0, 1.0, 2.0]
  stop_losses: [0.0, 1.0]
trading:
  units: 1000
  max_units: 5000
  refresh_seconds: 30
  paper_mode: true
storage:
  data_dir: /tmp/candles
  sqlite_path: /tmp/results.db
broker:
  api_key: key-from-file
  api_secret: secret-from-file
logging:
  level: debug
  format: text
`

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, testYAML))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Chart.Instrument != "EUR_USD" {
		t.Errorf("Instrument = %q", cfg.Chart.Instrument)
	}
	if cfg.Kernel.WMAPeriod != 20 {
		t.Errorf("WMAPeriod = %d, want 20", cfg.Kernel.WMAPeriod)
	}
	if cfg.Kernel.SignalBuyColumn != "ha_close" {
		t.Errorf("SignalBuyColumn = %q", cfg.Kernel.SignalBuyColumn)
	}
	if len(cfg.Solver.TakeProfits) != 3 {
		t.Errorf("TakeProfits = %v, want 3 entries", cfg.Solver.TakeProfits)
	}
	if !cfg.Trading.PaperMode {
		t.Error("PaperMode should be true")
	}

	// The candle count is derived from the solver windows.
	if cfg.Chart.CandleCount != 5000 {
		t.Errorf("CandleCount = %d, want train+sample = 5000", cfg.Chart.CandleCount)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("APCA_API_KEY_ID", "key-from-env")
	t.Setenv("APCA_API_SECRET_KEY", "secret-from-env")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load(writeConfig(t, testYAML))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Broker.APIKey != "key-from-env" {
		t.Errorf("APIKey = %q, want env override", cfg.Broker.APIKey)
	}
	if cfg.Broker.APISecret != "secret-from-env" {
		t.Errorf("APISecret = %q, want env override", cfg.Broker.APISecret)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want env override", cfg.Logging.Level)
	}
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"missing instrument", `
chart:
  granularity: H1
  candle_count: 10
kernel:
  wma_period: 20
`},
		{"bad granularity", `
chart:
  instrument: EUR_USD
  granularity: X7
  candle_count: 10
kernel:
  wma_period: 20
`},
		{"bad force edge", `
chart:
  instrument: EUR_USD
  granularity: H1
  candle_count: 10
kernel:
  wma_period: 20
solver:
  force_edge: Sideways
`},
	}
	for _, tc := range cases {
		if _, err := Load(writeConfig(t, tc.yaml)); err == nil {
			t.Errorf("%s: Load should have failed", tc.name)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load should fail for a missing file")
	}
}
