// Package sqlite stores daily close history in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"trading-signals/internal/model"
)

const defaultBatchSize = 500

// Config configures the store.
type Config struct {
	DBPath    string `mapstructure:"db_path"`    // e.g. "data/closes.db"
	BatchSize int    `mapstructure:"batch_size"` // rows per write transaction
}

// Store implements model.PriceReader and model.PriceWriter.
type Store struct {
	db        *sql.DB
	batchSize int
	log       *zap.Logger
}

var (
	_ model.PriceReader = (*Store)(nil)
	_ model.PriceWriter = (*Store)(nil)
)

// Open opens (creating if needed) the database with WAL mode and schema.
func Open(cfg Config, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Single writer; readers share the same connection under WAL.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	batch := cfg.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}

	log.Info("[sqlite] opened database", zap.String("path", cfg.DBPath))
	return &Store{db: db, batchSize: batch, log: log}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS daily_closes (
			symbol TEXT    NOT NULL,
			ts     INTEGER NOT NULL,
			close  REAL    NOT NULL,
			PRIMARY KEY (symbol, ts)
		);
	`)
	return err
}

// DB returns the underlying sql.DB for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// WriteCloses upserts the series in batched transactions.
func (s *Store) WriteCloses(ctx context.Context, series model.PriceSeries) (int, error) {
	written := 0
	for start := 0; start < series.Len(); start += s.batchSize {
		end := start + s.batchSize
		if end > series.Len() {
			end = series.Len()
		}
		if err := s.insertBatch(ctx, series.Symbol, series.Points[start:end]); err != nil {
			return written, fmt.Errorf("sqlite write %s: %w", series.Symbol, err)
		}
		written += end - start
	}
	s.log.Debug("[sqlite] committed closes", zap.String("symbol", series.Symbol), zap.Int("rows", written))
	return written, nil
}

func (s *Store) insertBatch(ctx context.Context, symbol string, points []model.PricePoint) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO daily_closes (symbol, ts, close)
		VALUES (?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, p := range points {
		if _, err := stmt.ExecContext(ctx, symbol, p.TS.Unix(), p.Close); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// ReadCloses returns closes for symbol with from <= ts <= to, ordered by ts.
// A zero from or to leaves that side open.
func (s *Store) ReadCloses(ctx context.Context, symbol string, from, to time.Time) (model.PriceSeries, error) {
	lo, hi := int64(-1<<62), int64(1<<62)
	if !from.IsZero() {
		lo = from.Unix()
	}
	if !to.IsZero() {
		hi = to.Unix()
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT ts, close
		FROM daily_closes
		WHERE symbol = ? AND ts >= ? AND ts <= ?
		ORDER BY ts ASC
	`, symbol, lo, hi)
	if err != nil {
		return model.PriceSeries{}, fmt.Errorf("sqlite query daily_closes: %w", err)
	}
	defer rows.Close()

	series := model.PriceSeries{Symbol: symbol}
	for rows.Next() {
		var (
			tsUnix int64
			p      model.PricePoint
		)
		if err := rows.Scan(&tsUnix, &p.Close); err != nil {
			return model.PriceSeries{}, fmt.Errorf("sqlite scan daily_closes: %w", err)
		}
		p.TS = time.Unix(tsUnix, 0).UTC()
		series.Points = append(series.Points, p)
	}
	return series, rows.Err()
}

// Symbols lists every stored symbol in name order.
func (s *Store) Symbols(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT symbol FROM daily_closes ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("sqlite query symbols: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, err
		}
		out = append(out, sym)
	}
	return out, rows.Err()
}

// LastTimestamp returns the newest stored date for symbol.
// ok is false when nothing is stored.
func (s *Store) LastTimestamp(ctx context.Context, symbol string) (ts time.Time, ok bool, err error) {
	var v sql.NullInt64
	err = s.db.QueryRowContext(ctx,
		`SELECT MAX(ts) FROM daily_closes WHERE symbol = ?`, symbol,
	).Scan(&v)
	if err != nil || !v.Valid {
		return time.Time{}, false, err
	}
	return time.Unix(v.Int64, 0).UTC(), true, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
