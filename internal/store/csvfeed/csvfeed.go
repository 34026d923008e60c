// Package csvfeed reads daily close exports (yfinance layout) into price
// series, either one file at a time or as a directory-backed PriceReader.
package csvfeed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"trading-signals/internal/model"
)

// ErrNoCloseColumn is returned when no header row names a close column.
var ErrNoCloseColumn = errors.New("csv has no Close column")

// Options controls parsing.
type Options struct {
	// AdjClose reads "Adj Close" instead of "Close" when present.
	AdjClose bool
}

// Parse reads a CSV with a Date column and a Close column. Rows whose date
// does not parse (yfinance's Ticker/Date sub-headers) and rows with an
// empty, "null" or "NaN" close are skipped. Output is sorted by date; a
// repeated date keeps the last row.
func Parse(r io.Reader, symbol string, opts Options) (model.PriceSeries, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	dateCol, closeCol := -1, -1
	byDay := make(map[time.Time]float64)

	for line := 1; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return model.PriceSeries{}, fmt.Errorf("csv line %d: %w", line, err)
		}

		if closeCol < 0 {
			dateCol, closeCol = header(rec, opts)
			continue
		}
		if dateCol >= len(rec) || closeCol >= len(rec) {
			continue
		}

		ts, ok := parseDate(rec[dateCol])
		if !ok {
			continue
		}
		raw := strings.TrimSpace(rec[closeCol])
		if raw == "" || strings.EqualFold(raw, "null") || strings.EqualFold(raw, "nan") {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return model.PriceSeries{}, fmt.Errorf("csv line %d: close %q: %w", line, raw, err)
		}
		byDay[ts] = v
	}

	if closeCol < 0 {
		return model.PriceSeries{}, ErrNoCloseColumn
	}

	series := model.PriceSeries{Symbol: symbol, Points: make([]model.PricePoint, 0, len(byDay))}
	for ts, v := range byDay {
		series.Points = append(series.Points, model.PricePoint{TS: ts, Close: v})
	}
	sort.Slice(series.Points, func(i, j int) bool {
		return series.Points[i].TS.Before(series.Points[j].TS)
	})
	return series, nil
}

// header locates the date and close columns. The date column is "Date" or,
// failing that, the first column ("Price" in newer yfinance exports).
func header(rec []string, opts Options) (dateCol, closeCol int) {
	dateCol, closeCol = 0, -1
	adjCol := -1
	for i, h := range rec {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "date", "datetime":
			dateCol = i
		case "close":
			closeCol = i
		case "adj close":
			adjCol = i
		}
	}
	if opts.AdjClose && adjCol >= 0 {
		closeCol = adjCol
	}
	return dateCol, closeCol
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if len(s) < len(time.DateOnly) {
		return time.Time{}, false
	}
	// "2024-01-02", "2024-01-02 00:00:00+05:30"
	ts, err := time.Parse(time.DateOnly, s[:len(time.DateOnly)])
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// ReadFile parses one file. An empty symbol is taken from the file name.
func ReadFile(path, symbol string, opts Options) (model.PriceSeries, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.PriceSeries{}, err
	}
	defer f.Close()

	if symbol == "" {
		symbol = SymbolFromPath(path)
	}
	s, err := Parse(f, symbol, opts)
	if err != nil {
		return model.PriceSeries{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// SymbolFromPath returns the file name without extension, e.g.
// "data/TCS.NS.csv" -> "TCS.NS".
func SymbolFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Dir serves every *.csv file in a directory as a price source.
type Dir struct {
	Path string
	Opts Options
}

var _ model.PriceReader = (*Dir)(nil)

// ReadCloses parses <Path>/<symbol>.csv and applies the date range.
func (d *Dir) ReadCloses(ctx context.Context, symbol string, from, to time.Time) (model.PriceSeries, error) {
	if err := ctx.Err(); err != nil {
		return model.PriceSeries{}, err
	}
	s, err := ReadFile(filepath.Join(d.Path, symbol+".csv"), symbol, d.Opts)
	if err != nil {
		return model.PriceSeries{}, err
	}
	out := model.PriceSeries{Symbol: symbol}
	for _, p := range s.Points {
		if (!from.IsZero() && p.TS.Before(from)) || (!to.IsZero() && p.TS.After(to)) {
			continue
		}
		out.Points = append(out.Points, p)
	}
	return out, nil
}

// Symbols lists the CSV files in the directory, by name.
func (d *Dir) Symbols(ctx context.Context) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(d.Path, "*.csv"))
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, SymbolFromPath(m))
	}
	sort.Strings(out)
	return out, nil
}

// Close is a no-op.
func (d *Dir) Close() error { return nil }
