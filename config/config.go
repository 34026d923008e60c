// Package config loads service configuration with viper: a YAML file,
// SIGNALS_* environment overrides and built-in defaults. Named options are
// parsed into their typed values during Load, so a bad name fails early.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"trading-signals/internal/crossover"
	"trading-signals/internal/execution"
	"trading-signals/internal/indicator"
	"trading-signals/internal/logger"
	"trading-signals/internal/markethours"
	redisstore "trading-signals/internal/store/redis"
	sqlitestore "trading-signals/internal/store/sqlite"
	"trading-signals/internal/strategy"
)

const envPrefix = "SIGNALS"

// Config holds all application configuration.
type Config struct {
	Log      logger.Config      `mapstructure:"log"`
	Strategy StrategyConfig     `mapstructure:"strategy"`
	Analysis AnalysisConfig     `mapstructure:"analysis"`
	Source   SourceConfig       `mapstructure:"source"`
	SQLite   sqlitestore.Config `mapstructure:"sqlite"`
	Redis    RedisConfig        `mapstructure:"redis"`
	Calendar markethours.Config `mapstructure:"calendar"`
	Schedule ScheduleConfig     `mapstructure:"schedule"`
	Scanner  ScannerConfig      `mapstructure:"scanner"`
	Notify   NotifyConfig       `mapstructure:"notify"`
	Metrics  MetricsConfig      `mapstructure:"metrics"`
	Feed     FeedConfig         `mapstructure:"feed"`
	Report   ReportConfig       `mapstructure:"report"`
}

// StrategyConfig names the crossing strategy. Fast and Slow use the
// "TYPE:PERIOD" form, e.g. "SMA:20".
type StrategyConfig struct {
	Kind   string `mapstructure:"kind"` // ma_cross | macd
	Fast   string `mapstructure:"fast"`
	Slow   string `mapstructure:"slow"`
	Short  int    `mapstructure:"short"`
	Long   int    `mapstructure:"long"`
	Signal int    `mapstructure:"signal"`

	Params strategy.Params `mapstructure:"-"`
}

// AnalysisConfig controls how crossings become trades.
type AnalysisConfig struct {
	ReferencePrice string   `mapstructure:"reference_price"` // close | fast
	OpenPosition   string   `mapstructure:"open_position"`   // force_close | discard
	Strict         bool     `mapstructure:"strict"`
	Symbols        []string `mapstructure:"symbols"` // empty = every stored symbol
	From           string   `mapstructure:"from"`    // YYYY-MM-DD, empty = open
	To             string   `mapstructure:"to"`
	Workers        int      `mapstructure:"workers"`

	Reference  crossover.ReferencePrice     `mapstructure:"-"`
	OpenPolicy execution.OpenPositionPolicy `mapstructure:"-"`
	FromDate   time.Time                    `mapstructure:"-"`
	ToDate     time.Time                    `mapstructure:"-"`
}

// SourceConfig selects where close history is read from.
type SourceConfig struct {
	Kind     string `mapstructure:"kind"` // sqlite | csv
	CSVDir   string `mapstructure:"csv_dir"`
	AdjClose bool   `mapstructure:"adj_close"`
}

// RedisConfig enables result publishing.
type RedisConfig struct {
	Enabled bool `mapstructure:"enabled"`

	redisstore.Config `mapstructure:",squash"`
}

// ScheduleConfig controls the end-of-day service loop.
type ScheduleConfig struct {
	Delay      time.Duration `mapstructure:"delay"` // wait after session close
	RunOnStart bool          `mapstructure:"run_on_start"`
}

// ScannerConfig controls the movers scan.
type ScannerConfig struct {
	TopN int `mapstructure:"top_n"` // 0 disables the scan
}

// NotifyConfig selects alert backends. The log backend is always on.
type NotifyConfig struct {
	WebhookURL     string `mapstructure:"webhook_url"`
	TelegramToken  string `mapstructure:"telegram_token"`
	TelegramChatID string `mapstructure:"telegram_chat_id"`
}

// MetricsConfig configures the /metrics and /healthz server.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"` // empty disables the server
}

// FeedConfig enables the WebSocket feed on the metrics server.
type FeedConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// ReportConfig configures report output.
type ReportConfig struct {
	Dir string `mapstructure:"dir"` // empty = console only
}

// Load reads configuration. path may name a YAML file; otherwise
// config.yaml is looked up in ./configs and the working directory, and a
// missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, err
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.parse(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file_path", "")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_age", 30)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.compress", false)

	v.SetDefault("strategy.kind", "ma_cross")
	v.SetDefault("strategy.fast", "SMA:20")
	v.SetDefault("strategy.slow", "SMA:50")
	v.SetDefault("strategy.short", 12)
	v.SetDefault("strategy.long", 26)
	v.SetDefault("strategy.signal", 9)

	v.SetDefault("analysis.reference_price", "close")
	v.SetDefault("analysis.open_position", "force_close")
	v.SetDefault("analysis.strict", false)
	v.SetDefault("analysis.symbols", []string{})
	v.SetDefault("analysis.from", "")
	v.SetDefault("analysis.to", "")
	v.SetDefault("analysis.workers", 4)

	v.SetDefault("source.kind", "sqlite")
	v.SetDefault("source.csv_dir", "data/csv")
	v.SetDefault("source.adj_close", false)

	v.SetDefault("sqlite.db_path", "data/closes.db")
	v.SetDefault("sqlite.batch_size", 500)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.latest_ttl", 7*24*time.Hour)
	v.SetDefault("redis.stream_max_len", 500)
	v.SetDefault("redis.max_pending", 10000)
	v.SetDefault("redis.breaker_failures", 5)
	v.SetDefault("redis.breaker_reset", 30*time.Second)

	v.SetDefault("calendar.exchange", "NSE")
	v.SetDefault("calendar.timezone", "IST")
	v.SetDefault("calendar.open", "09:15")
	v.SetDefault("calendar.close", "15:30")
	v.SetDefault("calendar.holidays", []string{})

	v.SetDefault("schedule.delay", 30*time.Minute)
	v.SetDefault("schedule.run_on_start", false)

	v.SetDefault("scanner.top_n", 10)

	v.SetDefault("notify.webhook_url", "")
	v.SetDefault("notify.telegram_token", "")
	v.SetDefault("notify.telegram_chat_id", "")

	v.SetDefault("metrics.addr", ":9090")
	v.SetDefault("feed.enabled", true)
	v.SetDefault("report.dir", "")
}

// parse turns named options into typed values.
func (c *Config) parse() error {
	params, err := c.Strategy.parse()
	if err != nil {
		return fmt.Errorf("strategy: %w", err)
	}
	c.Strategy.Params = params

	if c.Analysis.Reference, err = crossover.ParseReferencePrice(c.Analysis.ReferencePrice); err != nil {
		return fmt.Errorf("analysis.reference_price: %w", err)
	}
	if c.Analysis.Reference == crossover.RefFast && !c.Strategy.Params.Kind.PriceScaled() {
		return fmt.Errorf("analysis.reference_price: %w", &crossover.UnsupportedReferenceError{
			Strategy: c.Strategy.Params.Kind.String(), Reference: c.Analysis.Reference,
		})
	}
	if c.Analysis.OpenPolicy, err = execution.ParseOpenPositionPolicy(c.Analysis.OpenPosition); err != nil {
		return fmt.Errorf("analysis.open_position: %w", err)
	}
	if c.Analysis.FromDate, err = parseDate(c.Analysis.From); err != nil {
		return fmt.Errorf("analysis.from: %w", err)
	}
	if c.Analysis.ToDate, err = parseDate(c.Analysis.To); err != nil {
		return fmt.Errorf("analysis.to: %w", err)
	}
	if !c.Analysis.FromDate.IsZero() && !c.Analysis.ToDate.IsZero() && c.Analysis.ToDate.Before(c.Analysis.FromDate) {
		return fmt.Errorf("analysis: to %s precedes from %s", c.Analysis.To, c.Analysis.From)
	}

	switch c.Source.Kind {
	case "sqlite", "csv":
	default:
		return fmt.Errorf("source.kind: unknown source %q (want sqlite or csv)", c.Source.Kind)
	}
	if c.Notify.TelegramToken != "" && c.Notify.TelegramChatID == "" {
		return errors.New("notify: telegram_token set without telegram_chat_id")
	}
	if c.Feed.Enabled && c.Metrics.Addr == "" {
		return errors.New("feed: enabled without metrics.addr to serve it on")
	}
	return nil
}

func (s StrategyConfig) parse() (strategy.Params, error) {
	kind, err := strategy.ParseKind(s.Kind)
	if err != nil {
		return strategy.Params{}, err
	}
	p := strategy.Params{Kind: kind, Short: s.Short, Long: s.Long, Signal: s.Signal}
	if kind == strategy.KindMACross {
		if p.Fast, err = indicator.ParseSpec(s.Fast); err != nil {
			return strategy.Params{}, fmt.Errorf("fast: %w", err)
		}
		if p.Slow, err = indicator.ParseSpec(s.Slow); err != nil {
			return strategy.Params{}, fmt.Errorf("slow: %w", err)
		}
	}
	// Validate the combination now rather than at first run.
	if _, err := strategy.New(p); err != nil {
		return strategy.Params{}, err
	}
	return p, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.DateOnly, s)
}
