// Package indicator provides technical indicator calculations over daily
// close series.
//
// Moving averages implement the streaming Indicator interface, receiving one
// close at a time. Compute drives an Indicator over a whole series and
// returns a new aligned IndicatorSeries; inputs are never modified.
package indicator

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"trading-signals/internal/model"
)

// ErrInvalidPeriod is returned for a zero or negative window/span.
var ErrInvalidPeriod = errors.New("indicator period must be positive")

// Indicator is the interface for all streaming moving averages.
type Indicator interface {
	// Name returns the indicator name (e.g., "SMA", "EMA").
	Name() string

	// Update feeds the next close and recalculates.
	Update(price float64)

	// Value returns the current calculated value. Returns 0 if not Ready.
	Value() float64

	// Ready returns true when enough data has been accumulated.
	Ready() bool

	// Reset clears all state for reuse.
	Reset()
}

// Kind selects a moving-average implementation.
type Kind int

const (
	KindSMA Kind = iota + 1
	KindEMA
	KindSMMA
)

func (k Kind) String() string {
	switch k {
	case KindSMA:
		return "SMA"
	case KindEMA:
		return "EMA"
	case KindSMMA:
		return "SMMA"
	default:
		return "UNKNOWN"
	}
}

// ParseKind maps "SMA", "EMA" or "SMMA" (any case) to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SMA":
		return KindSMA, nil
	case "EMA":
		return KindEMA, nil
	case "SMMA":
		return KindSMMA, nil
	}
	return 0, fmt.Errorf("unknown indicator kind %q", s)
}

// Spec specifies a single moving average to compute.
type Spec struct {
	Kind   Kind
	Period int // window for SMA/SMMA, span for EMA
}

// String returns the series name, e.g. "SMA_20".
func (s Spec) String() string {
	return s.Kind.String() + "_" + strconv.Itoa(s.Period)
}

// Validate checks the period and kind.
func (s Spec) Validate() error {
	if s.Period <= 0 {
		return fmt.Errorf("%s: %w", s, ErrInvalidPeriod)
	}
	if s.Kind < KindSMA || s.Kind > KindSMMA {
		return fmt.Errorf("unknown indicator kind %d", int(s.Kind))
	}
	return nil
}

// ParseSpec parses "TYPE:PERIOD", e.g. "SMA:20" or "ema:9".
func ParseSpec(s string) (Spec, error) {
	tokens := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(tokens) != 2 {
		return Spec{}, fmt.Errorf("indicator spec %q: want TYPE:PERIOD", s)
	}
	kind, err := ParseKind(tokens[0])
	if err != nil {
		return Spec{}, err
	}
	period, err := strconv.Atoi(strings.TrimSpace(tokens[1]))
	if err != nil {
		return Spec{}, fmt.Errorf("indicator spec %q: %w", s, err)
	}
	spec := Spec{Kind: kind, Period: period}
	return spec, spec.Validate()
}

// New creates a fresh streaming indicator for spec.
func New(spec Spec) (Indicator, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	switch spec.Kind {
	case KindEMA:
		return NewEMA(spec.Period), nil
	case KindSMMA:
		return NewSMMA(spec.Period), nil
	default:
		return NewSMA(spec.Period), nil
	}
}

// MinPoints returns the shortest series Compute accepts for spec.
// The EMA is defined from its first point but still needs a full span.
func (s Spec) MinPoints() int { return s.Period }

// Compute runs the indicator described by spec over series and returns an
// aligned series, NaN until the indicator is ready.
func Compute(series model.PriceSeries, spec Spec) (model.IndicatorSeries, error) {
	ind, err := New(spec)
	if err != nil {
		return model.IndicatorSeries{}, err
	}
	if series.Len() < spec.MinPoints() {
		return model.IndicatorSeries{}, &model.InsufficientDataError{
			Indicator: spec.String(),
			Required:  spec.MinPoints(),
			Available: series.Len(),
		}
	}
	return run(ind, spec.String(), series.Points), nil
}

func run(ind Indicator, name string, points []model.PricePoint) model.IndicatorSeries {
	out := model.IndicatorSeries{
		Name:   name,
		Points: make([]model.IndicatorPoint, len(points)),
	}
	for i, p := range points {
		ind.Update(p.Close)
		v := math.NaN()
		if ind.Ready() {
			v = ind.Value()
		}
		out.Points[i] = model.IndicatorPoint{TS: p.TS, Value: v}
	}
	return out
}

// Engine computes a fixed set of indicators over one series.
// Holds no per-series state, so one Engine may be shared across goroutines.
type Engine struct {
	specs []Spec
}

// NewEngine creates an engine for the given specs.
func NewEngine(specs ...Spec) (*Engine, error) {
	for _, s := range specs {
		if err := s.Validate(); err != nil {
			return nil, err
		}
	}
	cp := make([]Spec, len(specs))
	copy(cp, specs)
	return &Engine{specs: cp}, nil
}

// Specs returns the configured specs.
func (e *Engine) Specs() []Spec {
	cp := make([]Spec, len(e.specs))
	copy(cp, e.specs)
	return cp
}

// MinPoints returns the longest minimum across all specs.
func (e *Engine) MinPoints() int {
	n := 0
	for _, s := range e.specs {
		if m := s.MinPoints(); m > n {
			n = m
		}
	}
	return n
}

// Process computes every configured indicator, in spec order.
func (e *Engine) Process(series model.PriceSeries) ([]model.IndicatorSeries, error) {
	results := make([]model.IndicatorSeries, 0, len(e.specs))
	for _, s := range e.specs {
		out, err := Compute(series, s)
		if err != nil {
			return nil, err
		}
		results = append(results, out)
	}
	return results, nil
}

// runValues drives ind over raw values; NaN until ready.
func runValues(ind Indicator, series []float64) []float64 {
	out := make([]float64, len(series))
	for i, p := range series {
		ind.Update(p)
		if ind.Ready() {
			out[i] = ind.Value()
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}
