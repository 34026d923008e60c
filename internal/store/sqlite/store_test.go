package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trading-signals/internal/model"
)

var day0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func seriesOf(symbol string, closes ...float64) model.PriceSeries {
	s := model.PriceSeries{Symbol: symbol, Points: make([]model.PricePoint, len(closes))}
	for i, c := range closes {
		s.Points[i] = model.PricePoint{TS: day0.AddDate(0, 0, i), Close: c}
	}
	return s
}

func openTemp(t *testing.T, batch int) *Store {
	t.Helper()
	st, err := Open(Config{DBPath: filepath.Join(t.TempDir(), "closes.db"), BatchSize: batch}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestWriteReadRoundTrip(t *testing.T) {
	st := openTemp(t, 2) // force several transactions
	ctx := context.Background()

	n, err := st.WriteCloses(ctx, seriesOf("TCS", 100, 101.5, 99.25, 103, 104))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	got, err := st.ReadCloses(ctx, "TCS", time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "TCS", got.Symbol)
	assert.Equal(t, []float64{100, 101.5, 99.25, 103, 104}, got.Closes())
	assert.Equal(t, day0, got.Points[0].TS)
	require.NoError(t, got.Validate())
}

func TestReadCloses_Range(t *testing.T) {
	st := openTemp(t, 0)
	ctx := context.Background()
	_, err := st.WriteCloses(ctx, seriesOf("INFY", 1, 2, 3, 4, 5))
	require.NoError(t, err)

	got, err := st.ReadCloses(ctx, "INFY", day0.AddDate(0, 0, 1), day0.AddDate(0, 0, 3))
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 3, 4}, got.Closes())

	got, err = st.ReadCloses(ctx, "MISSING", time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 0, got.Len())
}

func TestWriteCloses_Upserts(t *testing.T) {
	st := openTemp(t, 0)
	ctx := context.Background()
	_, err := st.WriteCloses(ctx, seriesOf("SBIN", 10, 11))
	require.NoError(t, err)
	_, err = st.WriteCloses(ctx, seriesOf("SBIN", 20))
	require.NoError(t, err)

	got, err := st.ReadCloses(ctx, "SBIN", time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, []float64{20, 11}, got.Closes())
}

func TestSymbolsAndLastTimestamp(t *testing.T) {
	st := openTemp(t, 0)
	ctx := context.Background()
	_, err := st.WriteCloses(ctx, seriesOf("TCS", 1, 2, 3))
	require.NoError(t, err)
	_, err = st.WriteCloses(ctx, seriesOf("INFY", 1))
	require.NoError(t, err)

	syms, err := st.Symbols(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"INFY", "TCS"}, syms)

	ts, ok, err := st.LastTimestamp(ctx, "TCS")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, day0.AddDate(0, 0, 2), ts)

	_, ok, err = st.LastTimestamp(ctx, "NONE")
	require.NoError(t, err)
	assert.False(t, ok)
}
