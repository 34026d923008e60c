package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"trading-signals/internal/backtest"
	"trading-signals/internal/indicator"
	"trading-signals/internal/markethours"
	"trading-signals/internal/metrics"
	"trading-signals/internal/model"
	"trading-signals/internal/notification"
	"trading-signals/internal/strategy"
)

// Monday 2026-10-19; 20th and 21st are exchange holidays.
var session = time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)

func ist(day, hour, minute int) time.Time {
	return time.Date(2026, 10, day, hour, minute, 0, 0, markethours.IST)
}

// seriesEnding builds a series whose last close falls on last.
func seriesEnding(symbol string, last time.Time, closes ...float64) model.PriceSeries {
	s := model.PriceSeries{Symbol: symbol, Points: make([]model.PricePoint, len(closes))}
	for i, c := range closes {
		s.Points[i] = model.PricePoint{TS: last.AddDate(0, 0, i-len(closes)+1), Close: c}
	}
	return s
}

type fakeRunner struct {
	mu     sync.Mutex
	calls  int
	batch  *backtest.Batch
	err    error
	called chan struct{}
}

func (f *fakeRunner) Run(ctx context.Context, symbols []string) (*backtest.Batch, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.called != nil {
		f.called <- struct{}{}
	}
	return f.batch, f.err
}

type fakePublisher struct {
	got  []string
	fail string
}

func (p *fakePublisher) Publish(_ context.Context, s *model.AnalysisSummary) error {
	if s.Symbol == p.fail {
		return errors.New("redis down")
	}
	p.got = append(p.got, s.Symbol)
	return nil
}

type fakeNotifier struct{ got []notification.Alert }

func (n *fakeNotifier) Send(_ context.Context, a notification.Alert) error {
	n.got = append(n.got, a)
	return nil
}

func buildBatch(t *testing.T, series ...model.PriceSeries) *backtest.Batch {
	t.Helper()
	strat, err := strategy.NewMovingAverageCross(
		indicator.Spec{Kind: indicator.KindSMA, Period: 2},
		indicator.Spec{Kind: indicator.KindSMA, Period: 4},
	)
	require.NoError(t, err)
	a, err := backtest.NewAnalyzer(backtest.Options{Strategy: strat})
	require.NoError(t, err)

	b := &backtest.Batch{RunID: "run-1", StartedAt: ist(19, 16, 0), FinishedAt: ist(19, 16, 1)}
	for _, s := range series {
		res, err := a.Analyze(s)
		b.Results = append(b.Results, backtest.SymbolResult{Symbol: s.Symbol, Result: res, Err: err})
	}
	return b
}

func newService(t *testing.T, cfg Config, deps Deps, now time.Time) *Service {
	t.Helper()
	svc, err := New(cfg, deps)
	require.NoError(t, err)
	svc.now = func() time.Time { return now }
	return svc
}

func TestNew_RequiresRunner(t *testing.T) {
	_, err := New(Config{}, Deps{})
	require.Error(t, err)
}

func TestNextRun(t *testing.T) {
	svc := newService(t, Config{Delay: 30 * time.Minute}, Deps{Runner: &fakeRunner{}}, time.Time{})

	assert.True(t, svc.NextRun(ist(19, 10, 0)).Equal(ist(19, 16, 0)))
	assert.True(t, svc.NextRun(ist(19, 15, 45)).Equal(ist(19, 16, 0)))
	// Run time itself rolls past the two holidays.
	assert.True(t, svc.NextRun(ist(19, 16, 0)).Equal(ist(22, 16, 0)))
	// Friday evening -> Monday.
	assert.True(t, svc.NextRun(ist(23, 18, 0)).Equal(ist(26, 16, 0)))
}

func TestRunOnce(t *testing.T) {
	fresh := seriesEnding("FRESH", session, 10, 10, 10, 10, 12)     // ENTER on the newest bar
	quiet := seriesEnding("QUIET", session, 10, 10, 10, 10, 12, 12) // crossing one bar earlier
	stale := seriesEnding("STALE", session.AddDate(0, 0, -3), 10, 10, 10, 10, 12)
	short := seriesEnding("SHORT", session, 10, 11)

	runner := &fakeRunner{batch: buildBatch(t, fresh, quiet, stale, short)}
	pub := &fakePublisher{fail: "QUIET"}
	notifier := &fakeNotifier{}
	m := metrics.NewMetrics(prometheus.NewRegistry())
	health := metrics.NewHealthStatus(true)

	svc := newService(t, Config{TopN: 2}, Deps{
		Runner:    runner,
		Publisher: pub,
		Notifier:  notifier,
		Metrics:   m,
		Health:    health,
		Log:       zap.NewNop(),
	}, ist(19, 16, 5))

	rep, err := svc.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, session, rep.Session)
	assert.Equal(t, 2, rep.Published)
	assert.Equal(t, 1, rep.PublishErrors)
	assert.ElementsMatch(t, []string{"FRESH", "STALE"}, pub.got)

	require.Len(t, rep.Signals, 1)
	assert.Equal(t, "FRESH", rep.Signals[0].Symbol)
	assert.Equal(t, "BUY FRESH (SMA_2/SMA_4)", rep.Signals[0].Title)

	// signal + failure alert for SHORT
	require.Len(t, notifier.got, 2)
	assert.Equal(t, notification.AlertWarning, notifier.got[1].Level)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AlertsTotal.WithLabelValues("INFO")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AlertsTotal.WithLabelValues("WARNING")))

	require.NotNil(t, rep.Movers)
	assert.Len(t, rep.Movers.Gainers, 2)
	assert.Equal(t, "FRESH", rep.Movers.Gainers[0].Symbol)

	assert.Equal(t, "run-1", health.LastRunID)
	assert.Equal(t, 4, health.LastRunSymbols)
	assert.Equal(t, 1, health.LastRunFailed)
}

func TestRunOnce_RunnerError(t *testing.T) {
	boom := errors.New("no symbols")
	svc := newService(t, Config{}, Deps{Runner: &fakeRunner{err: boom}}, ist(19, 16, 5))
	rep, err := svc.RunOnce(context.Background())
	assert.Nil(t, rep)
	assert.ErrorIs(t, err, boom)
}

func TestRun_Schedule(t *testing.T) {
	runner := &fakeRunner{
		batch:  buildBatch(t, seriesEnding("FRESH", session, 10, 10, 10, 10, 12)),
		called: make(chan struct{}, 4),
	}
	health := metrics.NewHealthStatus(false)
	svc := newService(t, Config{Delay: 30 * time.Minute, RunOnStart: true}, Deps{Runner: runner, Health: health}, ist(19, 10, 0))

	tick := make(chan time.Time)
	var waits []time.Duration
	var mu sync.Mutex
	svc.after = func(d time.Duration) <-chan time.Time {
		mu.Lock()
		waits = append(waits, d)
		mu.Unlock()
		return tick
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	<-runner.called // run on start
	tick <- time.Now()
	<-runner.called // scheduled run
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("service did not stop")
	}

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, waits)
	assert.Equal(t, 6*time.Hour, waits[0])
	assert.True(t, health.NextRunAt.Equal(ist(19, 16, 0)))
}
