package model

import (
	"context"
	"time"
)

// ── Storage Port Interfaces ──
// These interfaces decouple the analysis runner from concrete price stores
// (SQLite, CSV fixtures, in-memory test doubles).

// PriceReader reads daily close history.
type PriceReader interface {
	// ReadCloses returns closes for symbol with from <= ts <= to, ordered by ts.
	// A zero from or to leaves that side of the range open.
	ReadCloses(ctx context.Context, symbol string, from, to time.Time) (PriceSeries, error)

	// Symbols lists every symbol with at least one stored close.
	Symbols(ctx context.Context) ([]string, error)

	// Close releases underlying resources.
	Close() error
}

// PriceWriter stores daily close history.
type PriceWriter interface {
	// WriteCloses upserts every point of the series. Returns rows written.
	WriteCloses(ctx context.Context, series PriceSeries) (int, error)

	// Close releases underlying resources.
	Close() error
}
