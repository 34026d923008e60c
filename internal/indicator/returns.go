package indicator

import (
	"fmt"
	"math"
	"strconv"

	"trading-signals/internal/model"
)

// DailyReturns returns the percent change from each close to the next.
// The first point is undefined.
func DailyReturns(series model.PriceSeries) (model.IndicatorSeries, error) {
	out := model.IndicatorSeries{
		Name:   "RETURNS",
		Points: make([]model.IndicatorPoint, series.Len()),
	}
	for i, p := range series.Points {
		v := math.NaN()
		if i > 0 {
			prev := series.Points[i-1]
			if !(prev.Close > 0) {
				return model.IndicatorSeries{}, &model.InvalidPriceError{
					Index: i - 1, TS: prev.TS, Price: prev.Close, Reason: "return base must be positive",
				}
			}
			v = (p.Close/prev.Close - 1) * 100
		}
		out.Points[i] = model.IndicatorPoint{TS: p.TS, Value: v}
	}
	return out, nil
}

// RollingMean returns the mean of each window of w values. A window holding
// an undefined value is undefined.
func RollingMean(src model.IndicatorSeries, w int) (model.IndicatorSeries, error) {
	return rolling(src, w, 1, src.Name+"_MEAN_"+strconv.Itoa(w), func(win []float64) float64 {
		return mean(win)
	})
}

// RollingStdDev returns the sample standard deviation (n-1 denominator) of
// each window of w values. w must be at least 2.
func RollingStdDev(src model.IndicatorSeries, w int) (model.IndicatorSeries, error) {
	return rolling(src, w, 2, src.Name+"_STD_"+strconv.Itoa(w), func(win []float64) float64 {
		m := mean(win)
		var ss float64
		for _, v := range win {
			d := v - m
			ss += d * d
		}
		return math.Sqrt(ss / float64(len(win)-1))
	})
}

func rolling(src model.IndicatorSeries, w, minW int, name string, fn func([]float64) float64) (model.IndicatorSeries, error) {
	if w < minW {
		return model.IndicatorSeries{}, fmt.Errorf("%s: window %d: %w", name, w, ErrInvalidPeriod)
	}
	if src.Len() < w {
		return model.IndicatorSeries{}, &model.InsufficientDataError{Indicator: name, Required: w, Available: src.Len()}
	}

	vals := src.Values()
	out := model.IndicatorSeries{
		Name:   name,
		Points: make([]model.IndicatorPoint, src.Len()),
	}
	for i, p := range src.Points {
		v := math.NaN()
		if i >= w-1 && !hasNaN(vals[i-w+1:i+1]) {
			v = fn(vals[i-w+1 : i+1])
		}
		out.Points[i] = model.IndicatorPoint{TS: p.TS, Value: v}
	}
	return out, nil
}

func mean(vals []float64) float64 {
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func hasNaN(vals []float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
