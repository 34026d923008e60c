package strategy

import (
	"fmt"

	"trading-signals/internal/indicator"
	"trading-signals/internal/model"
)

// MovingAverageCross compares two moving averages of the close.
//
// ENTER: fast crosses above slow (golden cross)
// EXIT:  fast crosses below slow (death cross)
type MovingAverageCross struct {
	Fast indicator.Spec
	Slow indicator.Spec
}

// NewMovingAverageCross validates the pair. When both use the same kind the
// fast period must be shorter than the slow one (e.g., SMA 5 and SMA 20).
func NewMovingAverageCross(fast, slow indicator.Spec) (*MovingAverageCross, error) {
	if err := fast.Validate(); err != nil {
		return nil, fmt.Errorf("fast line: %w", err)
	}
	if err := slow.Validate(); err != nil {
		return nil, fmt.Errorf("slow line: %w", err)
	}
	if fast.Kind == slow.Kind && fast.Period >= slow.Period {
		return nil, fmt.Errorf("%w: fast %s must be shorter than slow %s", ErrInvalidParams, fast, slow)
	}
	return &MovingAverageCross{Fast: fast, Slow: slow}, nil
}

func (s *MovingAverageCross) Name() string {
	return s.Fast.String() + "/" + s.Slow.String()
}

func (s *MovingAverageCross) MinPoints() int {
	if s.Fast.MinPoints() > s.Slow.MinPoints() {
		return s.Fast.MinPoints()
	}
	return s.Slow.MinPoints()
}

func (s *MovingAverageCross) Lines(series model.PriceSeries) (model.IndicatorSeries, model.IndicatorSeries, error) {
	fast, err := indicator.Compute(series, s.Fast)
	if err != nil {
		return model.IndicatorSeries{}, model.IndicatorSeries{}, err
	}
	slow, err := indicator.Compute(series, s.Slow)
	if err != nil {
		return model.IndicatorSeries{}, model.IndicatorSeries{}, err
	}
	return fast, slow, nil
}
