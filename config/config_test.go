package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trading-signals/internal/crossover"
	"trading-signals/internal/execution"
	"trading-signals/internal/indicator"
	"trading-signals/internal/strategy"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{}\n"))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, strategy.KindMACross, cfg.Strategy.Params.Kind)
	assert.Equal(t, indicator.Spec{Kind: indicator.KindSMA, Period: 20}, cfg.Strategy.Params.Fast)
	assert.Equal(t, indicator.Spec{Kind: indicator.KindSMA, Period: 50}, cfg.Strategy.Params.Slow)
	assert.Equal(t, crossover.RefClose, cfg.Analysis.Reference)
	assert.Equal(t, execution.ForceClose, cfg.Analysis.OpenPolicy)
	assert.False(t, cfg.Analysis.Strict)
	assert.True(t, cfg.Analysis.FromDate.IsZero())
	assert.Equal(t, 4, cfg.Analysis.Workers)
	assert.Equal(t, "sqlite", cfg.Source.Kind)
	assert.Equal(t, "data/closes.db", cfg.SQLite.DBPath)
	assert.Equal(t, 500, cfg.SQLite.BatchSize)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 7*24*time.Hour, cfg.Redis.LatestTTL)
	assert.Equal(t, 30*time.Second, cfg.Redis.BreakerReset)
	assert.Equal(t, "NSE", cfg.Calendar.Exchange)
	assert.Equal(t, 30*time.Minute, cfg.Schedule.Delay)
	assert.Equal(t, 10, cfg.Scanner.TopN)
	assert.Equal(t, ":9090", cfg.Metrics.Addr)
	assert.True(t, cfg.Feed.Enabled)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
strategy:
  kind: macd
  short: 5
  long: 10
  signal: 3
analysis:
  reference_price: fast
  open_position: discard
  strict: true
  symbols: [TCS.NS, INFY.NS]
  from: "2023-01-01"
  to: "2023-12-31"
source:
  kind: csv
  csv_dir: /tmp/prices
redis:
  enabled: true
  addr: redis:6379
  latest_ttl: 1h
schedule:
  delay: 45m
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, strategy.Params{Kind: strategy.KindMACD, Short: 5, Long: 10, Signal: 3}, cfg.Strategy.Params)
	assert.Equal(t, crossover.RefFast, cfg.Analysis.Reference)
	assert.Equal(t, execution.Discard, cfg.Analysis.OpenPolicy)
	assert.True(t, cfg.Analysis.Strict)
	assert.Equal(t, []string{"TCS.NS", "INFY.NS"}, cfg.Analysis.Symbols)
	assert.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), cfg.Analysis.FromDate)
	assert.Equal(t, time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC), cfg.Analysis.ToDate)
	assert.Equal(t, "csv", cfg.Source.Kind)
	assert.Equal(t, "/tmp/prices", cfg.Source.CSVDir)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, time.Hour, cfg.Redis.LatestTTL)
	assert.Equal(t, 45*time.Minute, cfg.Schedule.Delay)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("SIGNALS_ANALYSIS_OPEN_POSITION", "discard")
	t.Setenv("SIGNALS_REDIS_ADDR", "env-redis:6380")
	t.Setenv("SIGNALS_STRATEGY_FAST", "EMA:9")
	t.Setenv("SIGNALS_STRATEGY_SLOW", "EMA:21")

	cfg, err := Load(writeConfig(t, "analysis:\n  open_position: force_close\n"))
	require.NoError(t, err)
	assert.Equal(t, execution.Discard, cfg.Analysis.OpenPolicy)
	assert.Equal(t, "env-redis:6380", cfg.Redis.Addr)
	assert.Equal(t, indicator.Spec{Kind: indicator.KindEMA, Period: 9}, cfg.Strategy.Params.Fast)
}

func TestLoad_UnknownNames(t *testing.T) {
	cases := map[string]string{
		"strategy kind":   "strategy:\n  kind: rsi\n",
		"reference price": "analysis:\n  reference_price: open\n",
		"open position":   "analysis:\n  open_position: hold\n",
		"source":          "source:\n  kind: parquet\n",
		"bad spec":        "strategy:\n  fast: SMA\n",
		"fast not faster": "strategy:\n  fast: SMA:50\n  slow: SMA:20\n",
		"bad date":        "analysis:\n  from: 01/02/2023\n",
		"reversed range":  "analysis:\n  from: \"2024-01-01\"\n  to: \"2023-01-01\"\n",
		"telegram":        "notify:\n  telegram_token: abc\n",
		"feed no server":  "metrics:\n  addr: \"\"\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			require.Error(t, err)
		})
	}
}

func TestLoad_MACDRejectsFastReference(t *testing.T) {
	_, err := Load(writeConfig(t, "strategy:\n  kind: macd\nanalysis:\n  reference_price: fast\n"))
	require.ErrorIs(t, err, crossover.ErrUnsupportedReference)

	cfg, err := Load(writeConfig(t, "strategy:\n  kind: macd\nanalysis:\n  reference_price: close\n"))
	require.NoError(t, err)
	assert.Equal(t, strategy.KindMACD, cfg.Strategy.Params.Kind)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
