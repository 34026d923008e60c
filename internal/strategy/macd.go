package strategy

import (
	"fmt"

	"trading-signals/internal/indicator"
	"trading-signals/internal/model"
)

// MACDCross compares the MACD line (fast) against its signal line (slow).
type MACDCross struct {
	Short  int
	Long   int
	Signal int
}

// NewMACDCross validates the spans; conventional values are 12, 26, 9.
func NewMACDCross(short, long, signal int) (*MACDCross, error) {
	if err := indicator.ValidateMACD(short, long, signal); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return &MACDCross{Short: short, Long: long, Signal: signal}, nil
}

func (s *MACDCross) Name() string {
	return fmt.Sprintf("MACD_%d_%d_%d", s.Short, s.Long, s.Signal)
}

func (s *MACDCross) MinPoints() int {
	return indicator.MACDMinPoints(s.Long, s.Signal)
}

func (s *MACDCross) Lines(series model.PriceSeries) (model.IndicatorSeries, model.IndicatorSeries, error) {
	res, err := indicator.MACD(series, s.Short, s.Long, s.Signal)
	if err != nil {
		return model.IndicatorSeries{}, model.IndicatorSeries{}, err
	}
	return res.Line, res.Signal, nil
}
