// cmd/importer loads daily close CSV exports into the SQLite store.
// Each file's base name is used as the symbol.
//
// Usage:
//
//	go run ./cmd/importer --dir=data/csv
//	go run ./cmd/importer --incremental data/csv/TCS.NS.csv data/csv/INFY.NS.csv
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"trading-signals/config"
	"trading-signals/internal/logger"
	"trading-signals/internal/model"
	"trading-signals/internal/store/csvfeed"
	sqlitestore "trading-signals/internal/store/sqlite"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config YAML")
	dir := flag.String("dir", "", "Import every *.csv in this directory")
	dbPath := flag.String("db", "", "SQLite path (default: sqlite.db_path from config)")
	adj := flag.Bool("adj", false, "Use the Adj Close column when present")
	incremental := flag.Bool("incremental", false, "Only insert rows newer than the last stored close")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[importer] config: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.Init("importer", cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[importer] logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	files := flag.Args()
	if *dir != "" {
		matches, err := filepath.Glob(filepath.Join(*dir, "*.csv"))
		if err != nil {
			log.Fatal("[importer] glob", zap.Error(err))
		}
		files = append(files, matches...)
	}
	if len(files) == 0 {
		log.Fatal("[importer] no input files (use --dir or pass paths)")
	}

	if *dbPath != "" {
		cfg.SQLite.DBPath = *dbPath
	}
	if err := os.MkdirAll(filepath.Dir(cfg.SQLite.DBPath), 0o755); err != nil {
		log.Fatal("[importer] data dir", zap.Error(err))
	}
	store, err := sqlitestore.Open(cfg.SQLite, log)
	if err != nil {
		log.Fatal("[importer] sqlite open failed", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	opts := csvfeed.Options{AdjClose: *adj || cfg.Source.AdjClose}
	var total, failed int
	for _, path := range files {
		n, err := importFile(ctx, store, path, opts, *incremental)
		if err != nil {
			failed++
			log.Error("[importer] import failed", zap.String("file", path), zap.Error(err))
			continue
		}
		total += n
		log.Info("[importer] imported", zap.String("file", path), zap.Int("rows", n))
	}

	log.Info("[importer] done", zap.Int("files", len(files)), zap.Int("failed", failed), zap.Int("rows", total))
	if failed > 0 {
		os.Exit(1)
	}
}

func importFile(ctx context.Context, store *sqlitestore.Store, path string, opts csvfeed.Options, incremental bool) (int, error) {
	symbol := csvfeed.SymbolFromPath(path)
	series, err := csvfeed.ReadFile(path, symbol, opts)
	if err != nil {
		return 0, err
	}
	if err := series.Validate(); err != nil {
		return 0, err
	}
	if incremental {
		last, ok, err := store.LastTimestamp(ctx, symbol)
		if err != nil {
			return 0, err
		}
		if ok {
			series = after(series, last)
		}
	}
	if series.Len() == 0 {
		return 0, nil
	}
	return store.WriteCloses(ctx, series)
}

func after(s model.PriceSeries, t time.Time) model.PriceSeries {
	out := model.PriceSeries{Symbol: s.Symbol}
	for _, p := range s.Points {
		if p.TS.After(t) {
			out.Points = append(out.Points, p)
		}
	}
	return out
}
