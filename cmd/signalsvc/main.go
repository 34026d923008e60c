// cmd/signalsvc runs the end-of-day signal service: after every exchange
// session close it analyzes the configured symbols, publishes summaries to
// Redis and sends alerts for crossings on the newest bar.
//
// Usage:
//
//	go run ./cmd/signalsvc --config=configs/config.yaml
//	go run ./cmd/signalsvc --once
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"trading-signals/config"
	"trading-signals/internal/backtest"
	"trading-signals/internal/feed"
	"trading-signals/internal/logger"
	"trading-signals/internal/markethours"
	"trading-signals/internal/metrics"
	"trading-signals/internal/model"
	"trading-signals/internal/notification"
	"trading-signals/internal/service"
	"trading-signals/internal/store/csvfeed"
	redisstore "trading-signals/internal/store/redis"
	sqlitestore "trading-signals/internal/store/sqlite"
	"trading-signals/internal/strategy"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config YAML (default: ./configs/config.yaml if present)")
	once := flag.Bool("once", false, "Run a single batch now and exit")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[signalsvc] config: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.Init("signalsvc", cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[signalsvc] logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log, *once); err != nil {
		log.Fatal("[signalsvc] fatal", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger, once bool) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("[signalsvc] shutdown signal received")
		cancel()
	}()

	prom := metrics.NewMetrics(prometheus.DefaultRegisterer)
	health := metrics.NewHealthStatus(cfg.Redis.Enabled)

	// ---- Price source ----
	var (
		reader model.PriceReader
		sqlDB  *sql.DB
	)
	if cfg.Source.Kind == "csv" {
		reader = &csvfeed.Dir{Path: cfg.Source.CSVDir, Opts: csvfeed.Options{AdjClose: cfg.Source.AdjClose}}
	} else {
		st, err := sqlitestore.Open(cfg.SQLite, log)
		if err != nil {
			return fmt.Errorf("sqlite open: %w", err)
		}
		reader, sqlDB = st, st.DB()
		health.CheckSQLite(ctx, sqlDB)
	}
	defer reader.Close()

	// ---- Result publishing ----
	var (
		publisher service.Publisher
		rdb       *goredis.Client
	)
	if cfg.Redis.Enabled {
		pub, client, err := redisstore.Dial(cfg.Redis.Config, log)
		if err != nil {
			return err
		}
		defer client.Close()
		instrumentPublisher(pub, prom, log)
		publisher, rdb = pub, client
		health.CheckRedis(ctx, rdb)
	}

	// ---- Browser feed ----
	var hub *feed.Hub
	if cfg.Feed.Enabled && !once {
		hub = feed.NewHub(log)
		if rdb != nil {
			go hub.Relay(ctx, rdb)
		} else {
			publisher = hub
		}
	}

	// ---- Alerts ----
	notifier := notification.Multi{notification.NewLogNotifier(log)}
	if cfg.Notify.WebhookURL != "" {
		notifier = append(notifier, notification.NewWebhookNotifier(cfg.Notify.WebhookURL, log))
	}
	if cfg.Notify.TelegramToken != "" {
		notifier = append(notifier, notification.NewTelegramNotifier(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID, log))
	}

	// ---- Analysis ----
	strat, err := strategy.New(cfg.Strategy.Params)
	if err != nil {
		return err
	}
	analyzer, err := backtest.NewAnalyzer(backtest.Options{
		Strategy:     strat,
		Reference:    cfg.Analysis.Reference,
		OpenPosition: cfg.Analysis.OpenPolicy,
		Strict:       cfg.Analysis.Strict,
	})
	if err != nil {
		return err
	}
	runner := backtest.NewRunner(reader, analyzer, prom, log, backtest.RunnerConfig{
		Workers: cfg.Analysis.Workers,
		From:    cfg.Analysis.FromDate,
		To:      cfg.Analysis.ToDate,
	})

	calendar, err := markethours.New(cfg.Calendar)
	if err != nil {
		return fmt.Errorf("calendar: %w", err)
	}

	svc, err := service.New(service.Config{
		Symbols:    cfg.Analysis.Symbols,
		Delay:      cfg.Schedule.Delay,
		RunOnStart: cfg.Schedule.RunOnStart,
		TopN:       cfg.Scanner.TopN,
	}, service.Deps{
		Runner:    runner,
		Calendar:  calendar,
		Publisher: publisher,
		Notifier:  notifier,
		Metrics:   prom,
		Health:    health,
		Log:       log,
	})
	if err != nil {
		return err
	}

	log.Info("[signalsvc] configured",
		zap.String("strategy", strat.Name()),
		zap.String("reference_price", cfg.Analysis.Reference.String()),
		zap.String("open_position", cfg.Analysis.OpenPolicy.String()),
		zap.String("source", cfg.Source.Kind),
		zap.Bool("redis", cfg.Redis.Enabled),
		zap.Bool("feed", hub != nil),
		zap.Int("alert_backends", len(notifier)))

	if once {
		_, err := svc.RunOnce(ctx)
		return err
	}

	// ---- Metrics + health ----
	if cfg.Metrics.Addr != "" {
		srv := metrics.NewServer(cfg.Metrics.Addr, prometheus.DefaultGatherer, health, log)
		if hub != nil {
			feed.RegisterRoutes(srv, hub)
		}
		srv.Start()
		defer func() {
			shutCtx, shutCancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer shutCancel()
			if err := srv.Stop(shutCtx); err != nil {
				log.Warn("[signalsvc] metrics server stop", zap.Error(err))
			}
		}()
	}
	health.StartLivenessChecker(ctx, rdb, sqlDB, 30*time.Second)

	return svc.Run(ctx)
}

func instrumentPublisher(pub *redisstore.Publisher, prom *metrics.Metrics, log *zap.Logger) {
	pub.OnWrite = func(took time.Duration, err error) {
		prom.RedisWriteDur.Observe(took.Seconds())
		if err != nil {
			prom.PublishFailures.Inc()
		}
	}
	pub.OnBuffer = func() { prom.PublishFailures.Inc() }
	pub.OnFlush = func(n int) { log.Info("[signalsvc] replayed buffered summaries", zap.Int("count", n)) }
	pub.Breaker().OnStateChange = func(from, to redisstore.State) {
		prom.RedisCircuitBreakerState.Set(float64(to))
		if to == redisstore.StateOpen {
			prom.RedisCircuitBreakerTrips.Inc()
		}
		log.Warn("[signalsvc] redis breaker state change", zap.String("from", from.String()), zap.String("to", to.String()))
	}
}
