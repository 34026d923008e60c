package indicator

import (
	"math"

	"trading-signals/internal/model"
)

// EMA calculates Exponential Moving Average.
// Seeded with the first price, so it is defined from the first update.
// O(1) per update, no window storage needed.
type EMA struct {
	period     int
	multiplier float64
	current    float64
	count      int
}

// NewEMA creates a new EMA indicator with the given span.
func NewEMA(period int) *EMA {
	return &EMA{
		period:     period,
		multiplier: 2.0 / float64(period+1),
	}
}

func (e *EMA) Name() string { return "EMA" }

func (e *EMA) Update(price float64) {
	e.count++
	if e.count == 1 {
		e.current = price
		return
	}

	// EMA = (Price * multiplier) + (EMA_prev * (1 - multiplier))
	e.current = (price * e.multiplier) + (e.current * (1 - e.multiplier))
}

func (e *EMA) Value() float64 { return e.current }
func (e *EMA) Ready() bool    { return e.count > 0 }

// Reset clears the EMA state for reuse.
func (e *EMA) Reset() {
	e.current = 0
	e.count = 0
}

// ExponentialMovingAverage returns EMA(span) aligned with series.
func ExponentialMovingAverage(series []float64, span int) []float64 {
	return runValues(NewEMA(span), series)
}

// EMAOf cascades an EMA over a derived series. The output is undefined
// until the first defined input, which seeds it. Later undefined inputs stay
// undefined and leave the running value untouched.
func EMAOf(src model.IndicatorSeries, span int, name string) (model.IndicatorSeries, error) {
	spec := Spec{Kind: KindEMA, Period: span}
	if err := spec.Validate(); err != nil {
		return model.IndicatorSeries{}, err
	}
	if src.Len() < span {
		return model.IndicatorSeries{}, &model.InsufficientDataError{
			Indicator: name,
			Required:  span,
			Available: src.Len(),
		}
	}

	ema := NewEMA(span)
	out := model.IndicatorSeries{
		Name:   name,
		Points: make([]model.IndicatorPoint, src.Len()),
	}
	for i, p := range src.Points {
		v := math.NaN()
		if !math.IsNaN(p.Value) {
			ema.Update(p.Value)
			v = ema.Value()
		}
		out.Points[i] = model.IndicatorPoint{TS: p.TS, Value: v}
	}
	return out, nil
}
