// Package backtest runs the full analysis pipeline for one or many symbols:
// lines, crossings, simulated trades and the performance report.
package backtest

import (
	"errors"
	"time"

	"trading-signals/internal/crossover"
	"trading-signals/internal/execution"
	"trading-signals/internal/model"
	"trading-signals/internal/performance"
	"trading-signals/internal/strategy"
)

// Options configures an Analyzer.
type Options struct {
	Strategy     strategy.Strategy
	Reference    crossover.ReferencePrice
	OpenPosition execution.OpenPositionPolicy
	Strict       bool
}

// Analyzer is pure: no I/O, no logging, no state between calls. One
// Analyzer may be shared across goroutines.
type Analyzer struct {
	opts      Options
	detector  *crossover.Detector
	simulator *execution.Simulator
	evaluator *performance.Evaluator
}

// NewAnalyzer validates opts. RefFast is rejected for strategies whose fast
// line is not a price.
func NewAnalyzer(opts Options) (*Analyzer, error) {
	if opts.Strategy == nil {
		return nil, errors.New("analyzer: strategy is required")
	}
	if opts.Reference == crossover.RefFast && !strategy.PriceScaled(opts.Strategy) {
		return nil, &crossover.UnsupportedReferenceError{Strategy: opts.Strategy.Name(), Reference: opts.Reference}
	}
	return &Analyzer{
		opts:      opts,
		detector:  crossover.NewDetector(opts.Reference),
		simulator: execution.NewSimulator(opts.OpenPosition),
		evaluator: performance.NewEvaluator(opts.Strict),
	}, nil
}

// Strategy returns the configured strategy.
func (a *Analyzer) Strategy() strategy.Strategy { return a.opts.Strategy }

// Result holds every stage's output for one series.
type Result struct {
	Series     model.PriceSeries
	Fast       model.IndicatorSeries
	Slow       model.IndicatorSeries
	RawEvents  []model.CrossEvent // as detected
	Events     []model.CrossEvent // normalized: starts with ENTER, alternates
	Ledger     model.Ledger
	Discarded  *model.CrossEvent
	FinalState execution.State
	Ignored    int
	Report     performance.Report

	opts Options
}

// Analyze validates series and runs lines -> detect -> simulate -> evaluate.
func (a *Analyzer) Analyze(series model.PriceSeries) (*Result, error) {
	if err := series.Validate(); err != nil {
		return nil, err
	}
	if n := a.opts.Strategy.MinPoints(); series.Len() < n {
		return nil, &model.InsufficientDataError{
			Indicator: a.opts.Strategy.Name(),
			Required:  n,
			Available: series.Len(),
		}
	}

	fast, slow, err := a.opts.Strategy.Lines(series)
	if err != nil {
		return nil, err
	}

	raw, err := a.detector.Detect(series, fast, slow)
	if err != nil {
		return nil, err
	}
	events := crossover.Normalize(raw)

	sim, err := a.simulator.Run(events, a.detector.Marks(series, fast))
	if err != nil {
		return nil, err
	}

	report, err := a.evaluator.Evaluate(sim.Ledger)
	if err != nil {
		return nil, err
	}

	return &Result{
		Series:     series,
		Fast:       fast,
		Slow:       slow,
		RawEvents:  raw,
		Events:     events,
		Ledger:     sim.Ledger,
		Discarded:  sim.Discarded,
		FinalState: sim.FinalState,
		Ignored:    sim.Ignored,
		Report:     report,
		opts:       a.opts,
	}, nil
}

// LastEvent returns the newest normalized event.
func (r *Result) LastEvent() (model.CrossEvent, bool) {
	if len(r.Events) == 0 {
		return model.CrossEvent{}, false
	}
	return r.Events[len(r.Events)-1], true
}

// SignalOnLastBar returns the newest event when it falls on the newest bar,
// i.e. a crossing that happened in the latest session.
func (r *Result) SignalOnLastBar() (model.CrossEvent, bool) {
	ev, ok := r.LastEvent()
	if !ok || ev.Index != r.Series.Len()-1 {
		return model.CrossEvent{}, false
	}
	return ev, true
}

// Summary flattens the result for publishers and reports.
func (r *Result) Summary(runID string, now time.Time) model.AnalysisSummary {
	s := model.AnalysisSummary{
		RunID:               runID,
		Symbol:              r.Series.Symbol,
		Strategy:            r.opts.Strategy.Name(),
		ReferencePrice:      r.opts.Reference.String(),
		OpenPositionPolicy:  r.opts.OpenPosition.String(),
		Bars:                r.Series.Len(),
		Events:              len(r.Events),
		Trades:              len(r.Report.Trades),
		Wins:                r.Report.Wins,
		Losses:              r.Report.Losses,
		Rejected:            len(r.Report.Rejected),
		CumulativeReturnPct: r.Report.CumulativeReturnPct,
		TotalPL:             r.Report.TotalPL,
		MaxDrawdownPct:      r.Report.MaxDrawdownPct,
		InPosition:          r.FinalState == execution.Long,
		GeneratedAt:         now,
	}
	if r.Series.Len() > 0 {
		s.From = r.Series.Points[0].TS
		s.To = r.Series.Points[r.Series.Len()-1].TS
	}
	if ev, ok := r.LastEvent(); ok {
		s.LastEvent = &ev
	}
	return s
}
