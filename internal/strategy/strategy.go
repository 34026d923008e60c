// Package strategy defines the signal policies: which two derived lines are
// compared to produce crossing events.
//
// A Strategy turns a price series into a fast and a slow line aligned with
// it. The crossover detector then decides where they cross.
package strategy

import (
	"errors"
	"fmt"
	"strings"

	"trading-signals/internal/indicator"
	"trading-signals/internal/model"
)

// ErrInvalidParams is returned for inconsistent strategy parameters.
var ErrInvalidParams = errors.New("invalid strategy parameters")

// Strategy is the interface that all crossover policies implement.
type Strategy interface {
	// Name returns a readable identifier, e.g. "SMA_5/SMA_20".
	Name() string

	// MinPoints returns the shortest series Lines accepts.
	MinPoints() int

	// Lines computes the fast and slow series. Both are aligned with series.
	Lines(series model.PriceSeries) (fast, slow model.IndicatorSeries, err error)
}

// Kind selects a strategy implementation.
type Kind int

const (
	KindMACross Kind = iota + 1
	KindMACD
)

func (k Kind) String() string {
	switch k {
	case KindMACross:
		return "ma_cross"
	case KindMACD:
		return "macd"
	default:
		return "unknown"
	}
}

// ParseKind maps "ma_cross" or "macd" to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ma_cross", "":
		return KindMACross, nil
	case "macd":
		return KindMACD, nil
	}
	return 0, fmt.Errorf("unknown strategy kind %q (want ma_cross or macd)", s)
}

// PriceScaled reports whether the fast line is in price units. Oscillator
// strategies such as MACD are not.
func (k Kind) PriceScaled() bool { return k == KindMACross }

// PriceScaled reports whether s produces a fast line in price units.
func PriceScaled(s Strategy) bool {
	_, osc := s.(*MACDCross)
	return !osc
}

// Params carries everything New needs for either kind.
type Params struct {
	Kind Kind

	// ma_cross
	Fast indicator.Spec
	Slow indicator.Spec

	// macd
	Short  int
	Long   int
	Signal int
}

// New builds and validates the strategy described by p.
func New(p Params) (Strategy, error) {
	switch p.Kind {
	case KindMACross:
		return NewMovingAverageCross(p.Fast, p.Slow)
	case KindMACD:
		return NewMACDCross(p.Short, p.Long, p.Signal)
	default:
		return nil, fmt.Errorf("%w: kind %d", ErrInvalidParams, int(p.Kind))
	}
}
