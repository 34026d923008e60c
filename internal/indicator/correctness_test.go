package indicator

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trading-signals/internal/model"
)

// ────────────────────────────────────────────────────────────
// Helpers
// ────────────────────────────────────────────────────────────

var day0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func seriesOf(closes ...float64) model.PriceSeries {
	s := model.PriceSeries{Symbol: "TEST", Points: make([]model.PricePoint, len(closes))}
	for i, c := range closes {
		s.Points[i] = model.PricePoint{TS: day0.AddDate(0, 0, i), Close: c}
	}
	return s
}

func assertClose(t *testing.T, label string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %.6f, want %.6f (tol=%.6f, diff=%.6f)", label, got, want, tol, math.Abs(got-want))
	}
}

func assertSeries(t *testing.T, got model.IndicatorSeries, want []float64) {
	t.Helper()
	require.Equal(t, len(want), got.Len())
	for i, w := range want {
		if math.IsNaN(w) {
			assert.False(t, got.Defined(i), "index %d should be undefined, got %.6f", i, got.Points[i].Value)
			continue
		}
		require.True(t, got.Defined(i), "index %d should be defined", i)
		assertClose(t, got.Name, got.Points[i].Value, w, 1e-4)
	}
}

var nan = math.NaN()

// ────────────────────────────────────────────────────────────
// SMA Correctness
// ────────────────────────────────────────────────────────────

func TestSMA_Correctness_Period3(t *testing.T) {
	// Prices: 100, 102, 104, 103, 105
	// SMA after point 3: (100+102+104)/3 = 102.0000
	// SMA after point 4: (102+104+103)/3 = 103.0000
	// SMA after point 5: (104+103+105)/3 = 104.0000
	sma := NewSMA(3)
	prices := []float64{100, 102, 104, 103, 105}
	expected := []float64{0, 0, 102.0, 103.0, 104.0}
	ready := []bool{false, false, true, true, true}

	for i, p := range prices {
		sma.Update(p)
		assert.Equal(t, ready[i], sma.Ready(), "point %d", i)
		if ready[i] {
			assertClose(t, "SMA(3)", sma.Value(), expected[i], 0.0001)
		}
	}
}

func TestSMA_Compute_AlignedWithNaNWarmup(t *testing.T) {
	out, err := Compute(seriesOf(10, 11, 12, 13, 14, 15, 16), Spec{Kind: KindSMA, Period: 5})
	require.NoError(t, err)
	assert.Equal(t, "SMA_5", out.Name)
	// (10..14)/5 = 12, (11..15)/5 = 13, (12..16)/5 = 14
	assertSeries(t, out, []float64{nan, nan, nan, nan, 12, 13, 14})
	assert.Equal(t, 4, out.FirstDefined())
}

func TestSMA_LongRun_NoDrift(t *testing.T) {
	sma := NewSMA(7)
	for i := 0; i < 10000; i++ {
		sma.Update(100.1 + float64(i%13)*0.37)
	}
	sma.Reset()
	for i := 0; i < 7; i++ {
		sma.Update(50)
	}
	assertClose(t, "SMA after reset", sma.Value(), 50, 1e-9)
}

// ────────────────────────────────────────────────────────────
// EMA Correctness
// ────────────────────────────────────────────────────────────

func TestEMA_Correctness_Span3(t *testing.T) {
	// α = 2/(3+1) = 0.5, seeded with the first price
	// 10 → 10
	// 11 → 0.5*11 + 0.5*10     = 10.5
	// 12 → 0.5*12 + 0.5*10.5   = 11.25
	// 13 → 0.5*13 + 0.5*11.25  = 12.125
	// 14 → 0.5*14 + 0.5*12.125 = 13.0625
	out, err := Compute(seriesOf(10, 11, 12, 13, 14), Spec{Kind: KindEMA, Period: 3})
	require.NoError(t, err)
	assertSeries(t, out, []float64{10, 10.5, 11.25, 12.125, 13.0625})
	assert.Equal(t, 0, out.FirstDefined())
}

func TestEMA_ShortSeries_Insufficient(t *testing.T) {
	// Values would exist from index 0, but the span is still the minimum length.
	_, err := Compute(seriesOf(10, 11), Spec{Kind: KindEMA, Period: 3})
	require.ErrorIs(t, err, model.ErrInsufficientData)
}

func TestEMAOf_SeedsAtFirstDefined(t *testing.T) {
	src := model.IndicatorSeries{Name: "X", Points: []model.IndicatorPoint{
		{TS: day0, Value: nan},
		{TS: day0.AddDate(0, 0, 1), Value: 4},
		{TS: day0.AddDate(0, 0, 2), Value: 8},
	}}
	out, err := EMAOf(src, 3, "X_EMA_3")
	require.NoError(t, err)
	assert.Equal(t, "X_EMA_3", out.Name)
	// seed 4, then 0.5*8 + 0.5*4 = 6
	assertSeries(t, out, []float64{nan, 4, 6})
}

// ────────────────────────────────────────────────────────────
// SMMA Correctness
// ────────────────────────────────────────────────────────────

func TestSMMA_Correctness_Period3(t *testing.T) {
	// Seed: SMA(10,11,12) = 11
	// 13 → (11*2 + 13)/3      = 11.6667
	// 14 → (11.6667*2 + 14)/3 = 12.4444
	out, err := Compute(seriesOf(10, 11, 12, 13, 14), Spec{Kind: KindSMMA, Period: 3})
	require.NoError(t, err)
	assertSeries(t, out, []float64{nan, nan, 11, 11.6667, 12.4444})
}

func TestSMMA_ResetReseeds(t *testing.T) {
	s := NewSMMA(3)
	for _, c := range []float64{10, 11, 12, 13} {
		s.Update(c)
	}
	s.Reset()
	assert.False(t, s.Ready())

	got := SmoothedMovingAverage([]float64{20, 21, 22, 23}, 3)
	assert.True(t, math.IsNaN(got[1]))
	assertClose(t, "seed", got[2], 21, 1e-9)
	assertClose(t, "smoothed", got[3], 21.6667, 1e-4)
}

// ────────────────────────────────────────────────────────────
// Shared behaviour
// ────────────────────────────────────────────────────────────

func TestConstantSeries_ConstantAverages(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 250
	}
	s := seriesOf(closes...)

	for _, spec := range []Spec{{KindSMA, 5}, {KindEMA, 5}, {KindSMMA, 5}, {KindSMA, 20}} {
		out, err := Compute(s, spec)
		require.NoError(t, err, spec.String())
		for i := out.FirstDefined(); i < out.Len(); i++ {
			assertClose(t, spec.String(), out.Points[i].Value, 250, 1e-9)
		}
	}
}

func TestCompute_DoesNotMutateInput(t *testing.T) {
	s := seriesOf(5, 6, 7, 8)
	before := s.Closes()
	_, err := Compute(s, Spec{Kind: KindSMA, Period: 2})
	require.NoError(t, err)
	assert.Equal(t, before, s.Closes())
}

func TestCompute_Errors(t *testing.T) {
	_, err := Compute(seriesOf(1, 2, 3), Spec{Kind: KindSMA, Period: 0})
	assert.ErrorIs(t, err, ErrInvalidPeriod)

	_, err = Compute(seriesOf(1, 2), Spec{Kind: KindSMA, Period: 5})
	var ide *model.InsufficientDataError
	require.ErrorAs(t, err, &ide)
	assert.Equal(t, "SMA_5", ide.Indicator)
	assert.Equal(t, 5, ide.Required)
	assert.Equal(t, 2, ide.Available)
}

func TestIndicators_TrendingUp_Ordering(t *testing.T) {
	// With steadily rising prices, faster MAs should be above slower MAs
	sma5 := NewSMA(5)
	sma20 := NewSMA(20)
	ema5 := NewEMA(5)

	for i := 0; i < 30; i++ {
		p := 100 + float64(i)
		sma5.Update(p)
		sma20.Update(p)
		ema5.Update(p)
	}

	assert.Greater(t, sma5.Value(), sma20.Value())
	assert.Greater(t, ema5.Value(), sma20.Value())
}

func TestEMA_MoreResponsiveThanSMA(t *testing.T) {
	sma := NewSMA(10)
	ema := NewEMA(10)

	for i := 0; i < 20; i++ {
		sma.Update(100)
		ema.Update(100)
	}

	// Sudden jump to 120
	sma.Update(120)
	ema.Update(120)

	assert.Greater(t, ema.Value(), sma.Value(), "EMA should react more than SMA to a sudden jump")
}
