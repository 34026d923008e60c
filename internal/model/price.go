package model

import (
	"fmt"
	"time"
)

// PricePoint is one daily close for a single instrument.
type PricePoint struct {
	TS    time.Time `json:"ts"`    // session date (UTC)
	Close float64   `json:"close"` // closing price, always > 0 in a valid series
}

// PriceSeries is a time-ordered close history for one instrument.
// Non-trading days are already excluded by the source, so gaps are expected.
type PriceSeries struct {
	Symbol string       `json:"symbol"`
	Points []PricePoint `json:"points"`
}

// Len returns the number of points in the series.
func (s PriceSeries) Len() int { return len(s.Points) }

// Closes returns a fresh slice of closing prices.
func (s PriceSeries) Closes() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Close
	}
	return out
}

// Last returns the most recent point. ok is false for an empty series.
func (s PriceSeries) Last() (PricePoint, bool) {
	if len(s.Points) == 0 {
		return PricePoint{}, false
	}
	return s.Points[len(s.Points)-1], true
}

// Validate checks the series invariants: strictly increasing timestamps
// and positive closes.
func (s PriceSeries) Validate() error {
	for i, p := range s.Points {
		if !(p.Close > 0) {
			return &InvalidPriceError{Index: i, TS: p.TS, Price: p.Close, Reason: "close must be positive"}
		}
		if i > 0 && !p.TS.After(s.Points[i-1].TS) {
			return fmt.Errorf("%w: %s index %d at %s does not follow %s",
				ErrUnorderedSeries, s.Symbol, i, p.TS.Format(time.DateOnly), s.Points[i-1].TS.Format(time.DateOnly))
		}
	}
	return nil
}
