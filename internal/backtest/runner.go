package backtest

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"trading-signals/internal/logger"
	"trading-signals/internal/metrics"
	"trading-signals/internal/model"
)

const defaultWorkers = 4

// RunnerConfig configures a Runner.
type RunnerConfig struct {
	Workers int       // concurrent analyses
	From    time.Time // zero = open
	To      time.Time // zero = open
}

// SymbolResult is the outcome for one symbol; exactly one of Result and
// Err is set.
type SymbolResult struct {
	Symbol   string
	Result   *Result
	Err      error
	Duration time.Duration
}

// Batch is one Runner.Run.
type Batch struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Results    []SymbolResult // sorted by symbol
}

// Succeeded returns the results without errors.
func (b *Batch) Succeeded() []SymbolResult {
	var out []SymbolResult
	for _, r := range b.Results {
		if r.Err == nil {
			out = append(out, r)
		}
	}
	return out
}

// Failed returns the number of symbols that errored.
func (b *Batch) Failed() int {
	n := 0
	for _, r := range b.Results {
		if r.Err != nil {
			n++
		}
	}
	return n
}

// Summaries flattens every successful result.
func (b *Batch) Summaries() []model.AnalysisSummary {
	var out []model.AnalysisSummary
	for _, r := range b.Succeeded() {
		out = append(out, r.Result.Summary(b.RunID, b.FinishedAt))
	}
	return out
}

// Series returns the price series of every successful result, e.g. for a
// movers scan over the same data.
func (b *Batch) Series() []model.PriceSeries {
	var out []model.PriceSeries
	for _, r := range b.Succeeded() {
		out = append(out, r.Result.Series)
	}
	return out
}

// Runner reads series from a PriceReader and analyzes many symbols on a
// bounded worker pool. One failing symbol never aborts the batch.
type Runner struct {
	reader   model.PriceReader
	analyzer *Analyzer
	metrics  *metrics.Metrics
	log      *zap.Logger
	cfg      RunnerConfig
}

// NewRunner creates a runner. m may be nil.
func NewRunner(reader model.PriceReader, analyzer *Analyzer, m *metrics.Metrics, log *zap.Logger, cfg RunnerConfig) *Runner {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{reader: reader, analyzer: analyzer, metrics: m, log: log, cfg: cfg}
}

// Run analyzes symbols, or every stored symbol when none are given.
// On cancellation the partial batch is returned together with ctx.Err().
func (r *Runner) Run(ctx context.Context, symbols []string) (*Batch, error) {
	batch := &Batch{RunID: uuid.NewString(), StartedAt: time.Now()}
	ctx = logger.WithTraceID(ctx, batch.RunID)
	log := r.log.With(logger.Fields(ctx)...)

	if len(symbols) == 0 {
		var err error
		if symbols, err = r.reader.Symbols(ctx); err != nil {
			return nil, err
		}
	}
	if len(symbols) == 0 {
		return nil, errors.New("no symbols to analyze")
	}

	log.Info("[runner] batch started",
		zap.Int("symbols", len(symbols)),
		zap.Int("workers", r.cfg.Workers),
		zap.String("strategy", r.analyzer.Strategy().Name()))

	jobs := make(chan string)
	results := make(chan SymbolResult, len(symbols))

	var wg sync.WaitGroup
	for i := 0; i < r.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sym := range jobs {
				results <- r.analyzeOne(ctx, log, sym)
			}
		}()
	}

dispatch:
	for _, sym := range symbols {
		select {
		case <-ctx.Done():
			break dispatch
		case jobs <- sym:
		}
	}
	close(jobs)
	wg.Wait()
	close(results)

	for res := range results {
		batch.Results = append(batch.Results, res)
	}
	sort.Slice(batch.Results, func(i, j int) bool { return batch.Results[i].Symbol < batch.Results[j].Symbol })
	batch.FinishedAt = time.Now()

	if r.metrics != nil {
		r.metrics.BatchDur.Observe(batch.FinishedAt.Sub(batch.StartedAt).Seconds())
		r.metrics.LastBatchUnix.Set(float64(batch.FinishedAt.Unix()))
	}
	log.Info("[runner] batch finished",
		zap.Int("analyzed", len(batch.Results)),
		zap.Int("failed", batch.Failed()),
		zap.Duration("elapsed", batch.FinishedAt.Sub(batch.StartedAt)))

	return batch, ctx.Err()
}

func (r *Runner) analyzeOne(ctx context.Context, log *zap.Logger, symbol string) SymbolResult {
	start := time.Now()
	res := SymbolResult{Symbol: symbol}
	strat := r.analyzer.Strategy().Name()

	series, err := r.reader.ReadCloses(ctx, symbol, r.cfg.From, r.cfg.To)
	if r.metrics != nil {
		r.metrics.PriceReadDur.Observe(time.Since(start).Seconds())
	}
	if err == nil {
		res.Result, err = r.analyzer.Analyze(series)
	}
	res.Err = err
	res.Duration = time.Since(start)

	if err != nil {
		log.Warn("[runner] analysis failed", zap.String("symbol", symbol), zap.Error(err))
		if r.metrics != nil {
			r.metrics.AnalysesTotal.WithLabelValues(strat, "error").Inc()
		}
		return res
	}

	rep := res.Result.Report
	log.Debug("[runner] analyzed",
		zap.String("symbol", symbol),
		zap.Int("bars", series.Len()),
		zap.Int("trades", len(rep.Trades)),
		zap.Float64("cumulative_return_pct", rep.CumulativeReturnPct),
		zap.Duration("took", res.Duration))
	if len(rep.Rejected) > 0 {
		log.Warn("[runner] trades rejected", zap.String("symbol", symbol), zap.Int("count", len(rep.Rejected)))
	}

	if r.metrics != nil {
		r.metrics.AnalysesTotal.WithLabelValues(strat, "ok").Inc()
		r.metrics.TradesTotal.WithLabelValues(strat).Add(float64(len(rep.Trades)))
		r.metrics.RejectedTrades.Add(float64(len(rep.Rejected)))
		r.metrics.ForcedExits.Add(float64(res.Result.Ledger.Forced()))
		r.metrics.AnalysisDur.Observe(res.Duration.Seconds())
		r.metrics.CumulativeReturn.WithLabelValues(strat, symbol).Set(rep.CumulativeReturnPct)
	}
	return res
}
