package model

import (
	"encoding/json"
	"time"
)

// AnalysisSummary is the flat result of one analysis run, handed to
// publishers, reports and notifiers.
type AnalysisSummary struct {
	RunID               string      `json:"run_id"`
	Symbol              string      `json:"symbol"`
	Strategy            string      `json:"strategy"`
	ReferencePrice      string      `json:"reference_price"`
	OpenPositionPolicy  string      `json:"open_position_policy"`
	From                time.Time   `json:"from"`
	To                  time.Time   `json:"to"`
	Bars                int         `json:"bars"`
	Events              int         `json:"events"`
	Trades              int         `json:"trades"`
	Wins                int         `json:"wins"`
	Losses              int         `json:"losses"`
	Rejected            int         `json:"rejected"`
	CumulativeReturnPct float64     `json:"cumulative_return_pct"`
	TotalPL             float64     `json:"total_pl"`
	MaxDrawdownPct      float64     `json:"max_drawdown_pct"`
	LastEvent           *CrossEvent `json:"last_event,omitempty"`
	InPosition          bool        `json:"in_position"` // last trade was force-closed or entry discarded
	GeneratedAt         time.Time   `json:"generated_at"`
}

// Key returns "strategy:symbol".
func (s *AnalysisSummary) Key() string {
	return s.Strategy + ":" + s.Symbol
}

// JSON returns the JSON-encoded summary (ignoring errors; the type has no
// unencodable fields).
func (s *AnalysisSummary) JSON() []byte {
	b, _ := json.Marshal(s)
	return b
}
