package model

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors. Typed errors below match them through errors.Is.
var (
	// ErrInsufficientData is returned when a series is shorter than the
	// window or span needed to produce a defined value.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrInvalidPrice is returned when a ratio would be taken over a
	// non-positive price.
	ErrInvalidPrice = errors.New("invalid price")

	// ErrMisaligned is returned when two series that must share timestamps do not.
	ErrMisaligned = errors.New("series are not aligned")

	// ErrUnorderedSeries is returned when timestamps are not strictly increasing.
	ErrUnorderedSeries = errors.New("series is not in timestamp order")
)

// InsufficientDataError reports how much history an indicator needed.
type InsufficientDataError struct {
	Indicator string
	Required  int
	Available int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for %s: need %d points, have %d", e.Indicator, e.Required, e.Available)
}

func (e *InsufficientDataError) Is(target error) bool { return target == ErrInsufficientData }

// InvalidPriceError identifies the offending point or trade.
type InvalidPriceError struct {
	Index  int // series index, or ledger index when raised by the evaluator
	TS     time.Time
	Price  float64
	Reason string
}

func (e *InvalidPriceError) Error() string {
	return fmt.Sprintf("invalid price %g at index %d (%s): %s", e.Price, e.Index, e.TS.Format(time.DateOnly), e.Reason)
}

func (e *InvalidPriceError) Is(target error) bool { return target == ErrInvalidPrice }
