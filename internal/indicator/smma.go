package indicator

// SMMA is the smoothed (Wilder) moving average of daily closes. The first
// `period` closes seed it with their plain mean; each later close moves it
// 1/period of the way toward that close, so one session weighs less than in
// an EMA of the same period.
type SMMA struct {
	period int
	seen   int
	seed   float64
	value  float64
}

// NewSMMA creates a smoothed average over period sessions.
func NewSMMA(period int) *SMMA {
	return &SMMA{period: period}
}

func (s *SMMA) Name() string { return "SMMA" }

func (s *SMMA) Update(price float64) {
	s.seen++
	switch {
	case s.seen < s.period:
		s.seed += price
	case s.seen == s.period:
		s.value = (s.seed + price) / float64(s.period)
	default:
		s.value += (price - s.value) / float64(s.period)
	}
}

func (s *SMMA) Value() float64 { return s.value }
func (s *SMMA) Ready() bool    { return s.seen >= s.period }

func (s *SMMA) Reset() { *s = SMMA{period: s.period} }

// SmoothedMovingAverage returns SMMA(period) aligned with series.
func SmoothedMovingAverage(series []float64, period int) []float64 {
	return runValues(NewSMMA(period), series)
}
