// cmd/backtest runs the crossing strategy once over stored close history and
// prints the per-symbol results, optionally writing CSV reports.
//
// Usage:
//
//	go run ./cmd/backtest --config=configs/config.yaml --symbols=TCS.NS,INFY.NS --out=reports
//	go run ./cmd/backtest --csv=data/csv --rolling=20
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"trading-signals/config"
	"trading-signals/internal/backtest"
	"trading-signals/internal/logger"
	"trading-signals/internal/model"
	"trading-signals/internal/report"
	"trading-signals/internal/scanner"
	"trading-signals/internal/store/csvfeed"
	sqlitestore "trading-signals/internal/store/sqlite"
	"trading-signals/internal/strategy"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config YAML (default: ./configs/config.yaml if present)")
	symbolsFlag := flag.String("symbols", "", "Comma-separated symbols (default: config, else every stored symbol)")
	csvDir := flag.String("csv", "", "Read CSV files from this directory instead of SQLite")
	outDir := flag.String("out", "", "Write trades/summary/movers CSV files to this directory")
	rolling := flag.Int("rolling", 0, "Also write rolling.csv with N-bar return mean and std (0=off)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[backtest] config: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.Init("backtest", cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[backtest] logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if *csvDir != "" {
		cfg.Source.Kind, cfg.Source.CSVDir = "csv", *csvDir
	}
	if *outDir != "" {
		cfg.Report.Dir = *outDir
	}
	symbols := cfg.Analysis.Symbols
	if *symbolsFlag != "" {
		symbols = splitSymbols(*symbolsFlag)
	}

	reader, err := openReader(cfg, log)
	if err != nil {
		log.Fatal("[backtest] price source open failed", zap.Error(err))
	}
	defer reader.Close()

	strat, err := strategy.New(cfg.Strategy.Params)
	if err != nil {
		log.Fatal("[backtest] strategy", zap.Error(err))
	}
	analyzer, err := backtest.NewAnalyzer(backtest.Options{
		Strategy:     strat,
		Reference:    cfg.Analysis.Reference,
		OpenPosition: cfg.Analysis.OpenPolicy,
		Strict:       cfg.Analysis.Strict,
	})
	if err != nil {
		log.Fatal("[backtest] analyzer", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	runner := backtest.NewRunner(reader, analyzer, nil, log, backtest.RunnerConfig{
		Workers: cfg.Analysis.Workers,
		From:    cfg.Analysis.FromDate,
		To:      cfg.Analysis.ToDate,
	})
	batch, err := runner.Run(ctx, symbols)
	if batch == nil {
		log.Fatal("[backtest] run failed", zap.Error(err))
	}
	if err != nil {
		log.Warn("[backtest] run interrupted", zap.Error(err))
	}

	fmt.Printf("\nStrategy %s, reference price %s, open positions %s\n\n",
		strat.Name(), cfg.Analysis.Reference, cfg.Analysis.OpenPolicy)
	if err := report.WriteConsole(os.Stdout, batch); err != nil {
		log.Error("[backtest] console report", zap.Error(err))
	}

	var movers *scanner.Result
	if cfg.Scanner.TopN > 0 {
		mv := scanner.Scan(batch.Series(), cfg.Scanner.TopN)
		movers = &mv
		printMovers(mv)
	}

	if cfg.Report.Dir != "" {
		paths, err := report.WriteFiles(cfg.Report.Dir, batch, movers)
		if err != nil {
			log.Error("[backtest] report files", zap.Error(err))
		}
		if *rolling > 0 {
			if p, err := writeRolling(cfg.Report.Dir, batch.Series(), *rolling, log); err != nil {
				log.Error("[backtest] rolling report", zap.Error(err))
			} else {
				paths = append(paths, p)
			}
		}
		for _, p := range paths {
			fmt.Printf("wrote %s\n", p)
		}
	}

	if batch.Failed() == len(batch.Results) {
		os.Exit(1)
	}
}

func openReader(cfg *config.Config, log *zap.Logger) (model.PriceReader, error) {
	if cfg.Source.Kind == "csv" {
		return &csvfeed.Dir{Path: cfg.Source.CSVDir, Opts: csvfeed.Options{AdjClose: cfg.Source.AdjClose}}, nil
	}
	return sqlitestore.Open(cfg.SQLite, log)
}

func writeRolling(dir string, series []model.PriceSeries, window int, log *zap.Logger) (string, error) {
	path := filepath.Join(dir, "rolling.csv")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	skipped, err := report.WriteRollingCSV(f, series, window)
	if len(skipped) > 0 {
		log.Warn("[backtest] too short for rolling window", zap.Strings("symbols", skipped), zap.Int("window", window))
	}
	return path, err
}

func printMovers(mv scanner.Result) {
	fmt.Println("\nTop gainers:")
	for i, c := range mv.Gainers {
		fmt.Printf("  %2d. %-14s %8.2f%%\n", i+1, c.Symbol, c.Pct)
	}
	fmt.Println("Top losers:")
	for i, c := range mv.Losers {
		fmt.Printf("  %2d. %-14s %8.2f%%\n", i+1, c.Symbol, c.Pct)
	}
}

func splitSymbols(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
