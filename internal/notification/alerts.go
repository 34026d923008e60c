package notification

import (
	"fmt"
	"time"

	"trading-signals/internal/model"
)

// SignalAlert describes a crossing that fell on the newest bar of the run.
func SignalAlert(s model.AnalysisSummary, ev model.CrossEvent) Alert {
	action := "BUY"
	if ev.Direction == model.Exit {
		action = "SELL"
	}
	return Alert{
		Level: AlertInfo,
		Title: fmt.Sprintf("%s %s (%s)", action, s.Symbol, s.Strategy),
		Message: fmt.Sprintf("%s crossing on %s at %.2f. Backtest %s to %s: %d trades, cumulative return %.2f%%.",
			ev.Direction, ev.TS.Format(time.DateOnly), ev.Price,
			s.From.Format(time.DateOnly), s.To.Format(time.DateOnly), s.Trades, s.CumulativeReturnPct),
		Symbol:   s.Symbol,
		Strategy: s.Strategy,
		RunID:    s.RunID,
		TS:       s.GeneratedAt,
	}
}

// FailureAlert reports symbols that could not be analyzed in a run.
// Returns false when nothing failed.
func FailureAlert(runID string, failed, total int, at time.Time) (Alert, bool) {
	if failed == 0 {
		return Alert{}, false
	}
	level := AlertWarning
	if failed == total {
		level = AlertCritical
	}
	return Alert{
		Level:   level,
		Title:   "Analysis run had failures",
		Message: fmt.Sprintf("%d of %d symbols failed in run %s.", failed, total, runID),
		RunID:   runID,
		TS:      at,
	}, true
}
