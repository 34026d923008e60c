// Package execution replays crossing events as a single long position and
// records the completed round trips.
package execution

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"trading-signals/internal/model"
)

// State is the position state of the simulator.
type State int

const (
	Flat State = iota
	Long
)

func (s State) String() string {
	if s == Long {
		return "LONG"
	}
	return "FLAT"
}

// OpenPositionPolicy decides what happens to a position still open when the
// events run out.
type OpenPositionPolicy int

const (
	// ForceClose marks the open position to the last point of the mark series.
	ForceClose OpenPositionPolicy = iota
	// Discard drops the open entry; it is reported in Result.Discarded.
	Discard
)

func (p OpenPositionPolicy) String() string {
	switch p {
	case ForceClose:
		return "force_close"
	case Discard:
		return "discard"
	default:
		return "unknown"
	}
}

// ParseOpenPositionPolicy maps "force_close" or "discard" to a policy.
// An empty name selects ForceClose.
func ParseOpenPositionPolicy(s string) (OpenPositionPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "force_close", "":
		return ForceClose, nil
	case "discard":
		return Discard, nil
	}
	return 0, fmt.Errorf("unknown open position policy %q (want force_close or discard)", s)
}

// ErrNoPrices is returned when a position must be force-closed but the
// mark series is empty or its last point is undefined.
var ErrNoPrices = errors.New("no prices to mark open position")

// Result is the outcome of one simulation run.
type Result struct {
	Ledger     model.Ledger
	Discarded  *model.CrossEvent // open entry dropped under Discard
	FinalState State             // state after the last event, before any force-close
	Ignored    int               // events that did not match the current state
}

// Simulator is a two-state machine: Flat -ENTER-> Long -EXIT-> Flat.
// It keeps no state between runs.
type Simulator struct {
	Policy OpenPositionPolicy
}

// NewSimulator creates a simulator with the given end-of-series policy.
func NewSimulator(policy OpenPositionPolicy) *Simulator {
	return &Simulator{Policy: policy}
}

// Run replays events, which must be in timestamp order. marks must carry the
// same reference price as the events; its last point prices a force-close.
// ENTER while Long and EXIT while Flat are ignored.
func (s *Simulator) Run(events []model.CrossEvent, marks model.PriceSeries) (Result, error) {
	var (
		res     Result
		state   = Flat
		pending model.CrossEvent
		lastTS  time.Time
	)

	for i, ev := range events {
		if i > 0 && ev.TS.Before(lastTS) {
			return Result{}, fmt.Errorf("%w: event %d at %s precedes %s",
				model.ErrUnorderedSeries, i, ev.TS.Format(time.DateOnly), lastTS.Format(time.DateOnly))
		}
		lastTS = ev.TS

		switch {
		case state == Flat && ev.Direction == model.Enter:
			pending = ev
			state = Long
		case state == Long && ev.Direction == model.Exit:
			res.Ledger = append(res.Ledger, model.Trade{
				EntryTS:    pending.TS,
				EntryPrice: pending.Price,
				ExitTS:     ev.TS,
				ExitPrice:  ev.Price,
			})
			state = Flat
		default:
			res.Ignored++
		}
	}

	res.FinalState = state
	if state == Flat {
		return res, nil
	}

	switch s.Policy {
	case Discard:
		open := pending
		res.Discarded = &open
	default:
		last, ok := marks.Last()
		if !ok || math.IsNaN(last.Close) {
			return Result{}, ErrNoPrices
		}
		exitTS := last.TS
		if exitTS.Before(pending.TS) {
			exitTS = pending.TS
		}
		res.Ledger = append(res.Ledger, model.Trade{
			EntryTS:    pending.TS,
			EntryPrice: pending.Price,
			ExitTS:     exitTS,
			ExitPrice:  last.Close,
			ForcedExit: true,
		})
	}
	return res, nil
}
