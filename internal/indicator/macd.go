package indicator

import (
	"errors"
	"fmt"
	"strconv"

	"trading-signals/internal/model"
)

// ErrInvalidMACD is returned when the short span is not below the long span.
var ErrInvalidMACD = errors.New("macd short span must be below long span")

// MACDResult holds the three MACD series, all aligned with the input.
type MACDResult struct {
	Line      model.IndicatorSeries // EMA(short) - EMA(long)
	Signal    model.IndicatorSeries // EMA(signal) of Line
	Histogram model.IndicatorSeries // Line - Signal
}

// MACDMinPoints returns the shortest series MACD accepts.
func MACDMinPoints(long, signal int) int {
	if signal > long {
		return signal
	}
	return long
}

// ValidateMACD checks the span arguments without touching data.
func ValidateMACD(short, long, signal int) error {
	if short <= 0 || long <= 0 || signal <= 0 {
		return fmt.Errorf("macd(%d,%d,%d): %w", short, long, signal, ErrInvalidPeriod)
	}
	if short >= long {
		return fmt.Errorf("macd(%d,%d,%d): %w", short, long, signal, ErrInvalidMACD)
	}
	return nil
}

// MACD computes the MACD line, its signal line and the histogram.
func MACD(series model.PriceSeries, short, long, signal int) (MACDResult, error) {
	if err := ValidateMACD(short, long, signal); err != nil {
		return MACDResult{}, err
	}
	suffix := strconv.Itoa(short) + "_" + strconv.Itoa(long)
	if n := MACDMinPoints(long, signal); series.Len() < n {
		return MACDResult{}, &model.InsufficientDataError{
			Indicator: "MACD_" + suffix,
			Required:  n,
			Available: series.Len(),
		}
	}

	fast := runValues(NewEMA(short), series.Closes())
	slow := runValues(NewEMA(long), series.Closes())

	line := model.IndicatorSeries{
		Name:   "MACD_" + suffix,
		Points: make([]model.IndicatorPoint, series.Len()),
	}
	for i, p := range series.Points {
		line.Points[i] = model.IndicatorPoint{TS: p.TS, Value: fast[i] - slow[i]}
	}

	sig, err := EMAOf(line, signal, "MACD_SIGNAL_"+strconv.Itoa(signal))
	if err != nil {
		return MACDResult{}, err
	}

	hist := model.IndicatorSeries{
		Name:   "MACD_HIST_" + suffix,
		Points: make([]model.IndicatorPoint, series.Len()),
	}
	for i := range line.Points {
		hist.Points[i] = model.IndicatorPoint{
			TS:    line.Points[i].TS,
			Value: line.Points[i].Value - sig.Points[i].Value,
		}
	}

	return MACDResult{Line: line, Signal: sig, Histogram: hist}, nil
}
