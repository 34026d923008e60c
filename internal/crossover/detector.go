// Package crossover turns a fast and a slow line into discrete ENTER/EXIT
// events.
package crossover

import (
	"errors"
	"fmt"
	"strings"

	"trading-signals/internal/model"
)

// ReferencePrice selects the price recorded on each event.
type ReferencePrice int

const (
	// RefClose records the underlying close at the event index.
	RefClose ReferencePrice = iota
	// RefFast records the fast line's value at the event index.
	RefFast
)

func (r ReferencePrice) String() string {
	switch r {
	case RefClose:
		return "close"
	case RefFast:
		return "fast"
	default:
		return "unknown"
	}
}

// ParseReferencePrice maps "close" or "fast" to a ReferencePrice.
// An empty name selects RefClose.
func ParseReferencePrice(s string) (ReferencePrice, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "close", "":
		return RefClose, nil
	case "fast":
		return RefFast, nil
	}
	return 0, fmt.Errorf("unknown reference price %q (want close or fast)", s)
}

// ErrUnsupportedReference is returned when a strategy's fast line is not
// in price units and cannot serve as a trade price.
var ErrUnsupportedReference = errors.New("unsupported reference price")

// UnsupportedReferenceError names the strategy and reference that clash.
type UnsupportedReferenceError struct {
	Strategy  string
	Reference ReferencePrice
}

func (e *UnsupportedReferenceError) Error() string {
	return fmt.Sprintf("reference price %q is not a tradable price for %s", e.Reference, e.Strategy)
}

func (e *UnsupportedReferenceError) Is(target error) bool { return target == ErrUnsupportedReference }

// Detector finds crossings of a fast line over a slow line.
type Detector struct {
	Reference ReferencePrice
}

// NewDetector creates a detector recording ref on each event.
func NewDetector(ref ReferencePrice) *Detector {
	return &Detector{Reference: ref}
}

// Detect scans the aligned series and returns every crossing in index order.
//
// Only indices where both lines are defined, and were defined at the
// previous index, are examined:
//
//	fast <= slow  ->  fast > slow   ENTER
//	fast >= slow  ->  fast < slow   EXIT
//
// The output may repeat a direction when the lines touch and separate again;
// see Normalize.
func (d *Detector) Detect(prices model.PriceSeries, fast, slow model.IndicatorSeries) ([]model.CrossEvent, error) {
	if err := aligned(prices, fast, slow); err != nil {
		return nil, err
	}

	var events []model.CrossEvent
	for i := 1; i < prices.Len(); i++ {
		if !fast.Defined(i-1) || !slow.Defined(i-1) || !fast.Defined(i) || !slow.Defined(i) {
			continue
		}
		prevDiff := fast.Points[i-1].Value - slow.Points[i-1].Value
		diff := fast.Points[i].Value - slow.Points[i].Value

		var dir model.Direction
		switch {
		case prevDiff <= 0 && diff > 0:
			dir = model.Enter
		case prevDiff >= 0 && diff < 0:
			dir = model.Exit
		default:
			continue
		}

		price := prices.Points[i].Close
		if d.Reference == RefFast {
			price = fast.Points[i].Value
		}
		events = append(events, model.CrossEvent{
			Direction: dir,
			Index:     i,
			TS:        prices.Points[i].TS,
			Price:     price,
		})
	}
	return events, nil
}

// Marks returns the series events are priced from: prices under RefClose,
// the fast line under RefFast. A force-closed position is marked to its
// last point so entry and exit share one reference.
func (d *Detector) Marks(prices model.PriceSeries, fast model.IndicatorSeries) model.PriceSeries {
	if d.Reference != RefFast {
		return prices
	}
	out := model.PriceSeries{Symbol: prices.Symbol, Points: make([]model.PricePoint, len(fast.Points))}
	for i, p := range fast.Points {
		out.Points[i] = model.PricePoint{TS: p.TS, Close: p.Value}
	}
	return out
}

// Normalize drops every EXIT before the first ENTER and collapses runs of
// the same direction to the first event of the run. The result is empty or
// starts with ENTER and strictly alternates. events is not modified.
func Normalize(events []model.CrossEvent) []model.CrossEvent {
	out := make([]model.CrossEvent, 0, len(events))
	for _, e := range events {
		if len(out) == 0 {
			if e.Direction == model.Enter {
				out = append(out, e)
			}
			continue
		}
		if e.Direction != out[len(out)-1].Direction {
			out = append(out, e)
		}
	}
	return out
}

func aligned(prices model.PriceSeries, fast, slow model.IndicatorSeries) error {
	n := prices.Len()
	if fast.Len() != n || slow.Len() != n {
		return fmt.Errorf("%w: prices %d, %s %d, %s %d", model.ErrMisaligned, n, fast.Name, fast.Len(), slow.Name, slow.Len())
	}
	for i, p := range prices.Points {
		if !fast.Points[i].TS.Equal(p.TS) || !slow.Points[i].TS.Equal(p.TS) {
			return fmt.Errorf("%w: timestamp mismatch at index %d", model.ErrMisaligned, i)
		}
	}
	return nil
}
