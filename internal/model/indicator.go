package model

import (
	"math"
	"time"
)

// IndicatorPoint is one value of a derived series. Value is NaN while the
// indicator is still warming up.
type IndicatorPoint struct {
	TS    time.Time `json:"ts"`
	Value float64   `json:"value"`
}

// IndicatorSeries is a derived series aligned 1:1 with the price series it
// was computed from.
type IndicatorSeries struct {
	Name   string           `json:"name"` // e.g. "SMA_20", "MACD_12_26"
	Points []IndicatorPoint `json:"points"`
}

// Len returns the number of points in the series.
func (s IndicatorSeries) Len() int { return len(s.Points) }

// Defined reports whether index i holds a usable value.
func (s IndicatorSeries) Defined(i int) bool {
	return i >= 0 && i < len(s.Points) && !math.IsNaN(s.Points[i].Value)
}

// Values returns a fresh slice of raw values (NaN for undefined entries).
func (s IndicatorSeries) Values() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Value
	}
	return out
}

// FirstDefined returns the first index holding a value, or -1.
func (s IndicatorSeries) FirstDefined() int {
	for i := range s.Points {
		if s.Defined(i) {
			return i
		}
	}
	return -1
}
