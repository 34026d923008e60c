package model

import "time"

// Trade is one completed long round trip: an ENTER paired with an EXIT.
type Trade struct {
	EntryTS    time.Time `json:"entry_ts"`
	EntryPrice float64   `json:"entry_price"`
	ExitTS     time.Time `json:"exit_ts"`
	ExitPrice  float64   `json:"exit_price"`

	// ForcedExit is set when the exit is the synthetic mark-to-last-price
	// close of a position still open at series end.
	ForcedExit bool `json:"forced_exit"`
}

// Holding returns how long the position was held.
func (t Trade) Holding() time.Duration {
	return t.ExitTS.Sub(t.EntryTS)
}

// Ledger is an ordered list of trades; insertion order is chronological.
type Ledger []Trade

// Forced returns the number of trades closed synthetically at series end.
func (l Ledger) Forced() int {
	n := 0
	for _, t := range l {
		if t.ForcedExit {
			n++
		}
	}
	return n
}
