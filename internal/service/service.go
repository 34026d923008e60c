// Package service runs the end-of-day signal pipeline on the exchange
// calendar: after every session close it analyzes the configured symbols,
// publishes the summaries, raises alerts for fresh crossings and ranks the
// day's movers.
package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"trading-signals/internal/backtest"
	"trading-signals/internal/logger"
	"trading-signals/internal/markethours"
	"trading-signals/internal/metrics"
	"trading-signals/internal/model"
	"trading-signals/internal/notification"
	"trading-signals/internal/scanner"
)

// Publisher receives every successful summary of a run.
type Publisher interface {
	Publish(ctx context.Context, s *model.AnalysisSummary) error
}

// Batcher runs one analysis batch.
type Batcher interface {
	Run(ctx context.Context, symbols []string) (*backtest.Batch, error)
}

// Config controls scheduling and post-processing.
type Config struct {
	Symbols    []string      // empty = every stored symbol
	Delay      time.Duration // wait after session close before running
	RunOnStart bool
	TopN       int // movers per side; 0 disables the scan
}

// Deps are the collaborators of a Service. Publisher, Notifier, Metrics
// and Health may be nil.
type Deps struct {
	Runner    Batcher
	Calendar  *markethours.Calendar
	Publisher Publisher
	Notifier  notification.Notifier
	Metrics   *metrics.Metrics
	Health    *metrics.HealthStatus
	Log       *zap.Logger
}

// Service is the top-level orchestrator for scheduled runs.
type Service struct {
	cfg  Config
	deps Deps
	log  *zap.Logger

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

// RunReport describes one completed run.
type RunReport struct {
	Batch          *backtest.Batch
	Session        time.Time // last completed session at run time
	Published      int
	PublishErrors  int
	Signals        []notification.Alert
	Movers         *scanner.Result
	NotifyFailures int
}

// New creates a Service.
func New(cfg Config, deps Deps) (*Service, error) {
	if deps.Runner == nil {
		return nil, errors.New("service: runner is required")
	}
	if deps.Calendar == nil {
		deps.Calendar = markethours.NSE()
	}
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	return &Service{
		cfg:   cfg,
		deps:  deps,
		log:   deps.Log,
		now:   time.Now,
		after: time.After,
	}, nil
}

// NextRun returns when the scheduled run after t fires.
func (s *Service) NextRun(t time.Time) time.Time {
	return s.deps.Calendar.NextClose(t.Add(-s.cfg.Delay)).Add(s.cfg.Delay)
}

// Run blocks until ctx is cancelled, running a batch after every session
// close. A failed run is logged and the schedule continues.
func (s *Service) Run(ctx context.Context) error {
	s.log.Info("[service] started",
		zap.String("calendar", s.deps.Calendar.StatusString(s.now())),
		zap.Duration("delay", s.cfg.Delay))

	if s.cfg.RunOnStart {
		s.runLogged(ctx)
	}

	for {
		next := s.NextRun(s.now())
		if s.deps.Health != nil {
			s.deps.Health.SetNextRunAt(next)
		}
		s.log.Info("[service] next run scheduled", zap.Time("at", next))

		select {
		case <-ctx.Done():
			s.log.Info("[service] shutdown")
			return nil
		case <-s.after(next.Sub(s.now())):
		}
		s.runLogged(ctx)
	}
}

func (s *Service) runLogged(ctx context.Context) {
	if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
		s.log.Error("[service] run failed", zap.Error(err))
	}
}

// RunOnce runs a single batch and its post-processing immediately.
func (s *Service) RunOnce(ctx context.Context) (*RunReport, error) {
	started := s.now()
	batch, err := s.deps.Runner.Run(ctx, s.cfg.Symbols)
	if batch == nil {
		return nil, err
	}
	ctx = logger.WithTraceID(ctx, batch.RunID)
	log := s.log.With(logger.Fields(ctx)...)

	rep := &RunReport{
		Batch:   batch,
		Session: s.deps.Calendar.LastCompletedSession(started),
	}

	for _, sum := range batch.Summaries() {
		sum := sum
		if s.deps.Publisher != nil {
			if perr := s.deps.Publisher.Publish(ctx, &sum); perr != nil {
				rep.PublishErrors++
				log.Warn("[service] publish failed", zap.String("symbol", sum.Symbol), zap.Error(perr))
			} else {
				rep.Published++
			}
		}
	}

	for _, r := range batch.Succeeded() {
		ev, ok := r.Result.SignalOnLastBar()
		if !ok {
			continue
		}
		// A crossing on an old last bar means the source is stale.
		if ev.TS.Before(rep.Session) {
			log.Debug("[service] stale signal skipped", zap.String("symbol", r.Symbol), zap.Time("bar", ev.TS))
			continue
		}
		a := notification.SignalAlert(r.Result.Summary(batch.RunID, batch.FinishedAt), ev)
		rep.Signals = append(rep.Signals, a)
		s.notify(ctx, log, rep, a)
	}

	if a, ok := notification.FailureAlert(batch.RunID, batch.Failed(), len(batch.Results), batch.FinishedAt); ok {
		s.notify(ctx, log, rep, a)
	}

	if s.cfg.TopN > 0 {
		mv := scanner.Scan(batch.Series(), s.cfg.TopN)
		rep.Movers = &mv
		for i, g := range mv.Gainers {
			log.Info("[service] top gainer", zap.Int("rank", i+1), zap.String("symbol", g.Symbol), zap.Float64("pct", g.Pct))
		}
		for i, l := range mv.Losers {
			log.Info("[service] top loser", zap.Int("rank", i+1), zap.String("symbol", l.Symbol), zap.Float64("pct", l.Pct))
		}
	}

	if s.deps.Health != nil {
		s.deps.Health.RecordRun(batch.RunID, batch.FinishedAt, len(batch.Results), batch.Failed())
	}
	log.Info("[service] run complete",
		zap.Int("symbols", len(batch.Results)),
		zap.Int("failed", batch.Failed()),
		zap.Int("published", rep.Published),
		zap.Int("signals", len(rep.Signals)))

	return rep, err
}

func (s *Service) notify(ctx context.Context, log *zap.Logger, rep *RunReport, a notification.Alert) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.AlertsTotal.WithLabelValues(string(a.Level)).Inc()
	}
	if s.deps.Notifier == nil {
		return
	}
	if err := s.deps.Notifier.Send(ctx, a); err != nil {
		rep.NotifyFailures++
		log.Warn("[service] notify failed", zap.String("title", a.Title), zap.Error(err))
	}
}
