// Package redis publishes analysis summaries to Redis: a latest-value key,
// a trimmed history stream and a pub/sub channel per symbol.
package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"trading-signals/internal/model"
)

const (
	defaultLatestTTL    = 36 * time.Hour
	defaultStreamMaxLen = 500
	defaultMaxPending   = 10000
)

// Config configures the publisher.
type Config struct {
	Addr         string        `mapstructure:"addr"` // e.g. "localhost:6379"
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	LatestTTL    time.Duration `mapstructure:"latest_ttl"`
	StreamMaxLen int64         `mapstructure:"stream_max_len"`
	MaxPending   int           `mapstructure:"max_pending"` // summaries held while the breaker is open

	BreakerFailures int           `mapstructure:"breaker_failures"`
	BreakerReset    time.Duration `mapstructure:"breaker_reset"`
}

// LatestKey is the key holding the newest summary for strategy and symbol.
func LatestKey(s *model.AnalysisSummary) string {
	return "analysis:latest:" + s.Strategy + ":" + s.Symbol
}

// StreamKey is the per-symbol history stream.
func StreamKey(s *model.AnalysisSummary) string { return "analysis:" + s.Symbol }

// Channel is the per-symbol pub/sub channel.
func Channel(s *model.AnalysisSummary) string { return "pub:analysis:" + s.Symbol }

// Publisher writes summaries through a circuit breaker. While the breaker is
// open, summaries are held in a bounded buffer (oldest dropped first) and
// replayed once a publish succeeds again.
type Publisher struct {
	client goredis.Cmdable
	cb     *CircuitBreaker
	log    *zap.Logger

	ttl    time.Duration
	maxLen int64
	maxBuf int

	mu      sync.Mutex
	pending []*model.AnalysisSummary

	// Callbacks (optional)
	OnBuffer func()                              // a summary was buffered
	OnFlush  func(count int)                     // buffered summaries were replayed
	OnWrite  func(took time.Duration, err error) // one pipeline round trip
}

// Dial connects to Redis, pings it and returns a publisher plus the client
// for health checks.
func Dial(cfg Config, log *zap.Logger) (*Publisher, *goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}

	if log == nil {
		log = zap.NewNop()
	}
	log.Info("[redis] connected", zap.String("addr", cfg.Addr))
	return NewPublisher(client, cfg, log), client, nil
}

// NewPublisher wraps an existing client.
func NewPublisher(client goredis.Cmdable, cfg Config, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Publisher{
		client: client,
		cb:     NewCircuitBreaker(cfg.BreakerFailures, cfg.BreakerReset),
		log:    log,
		ttl:    cfg.LatestTTL,
		maxLen: cfg.StreamMaxLen,
		maxBuf: cfg.MaxPending,
	}
	if p.cb.resetTimeout <= 0 {
		p.cb.resetTimeout = 10 * time.Second
	}
	if p.ttl <= 0 {
		p.ttl = defaultLatestTTL
	}
	if p.maxLen <= 0 {
		p.maxLen = defaultStreamMaxLen
	}
	if p.maxBuf <= 0 {
		p.maxBuf = defaultMaxPending
	}
	return p
}

// Breaker exposes the circuit breaker, e.g. to hook state changes into metrics.
func (p *Publisher) Breaker() *CircuitBreaker { return p.cb }

// Publish writes one summary. With the breaker open the summary is buffered
// and ErrCircuitOpen is returned; other errors are returned unwrapped from
// the Redis pipeline.
func (p *Publisher) Publish(ctx context.Context, s *model.AnalysisSummary) error {
	err := p.cb.Execute(ctx, func(ctx context.Context) error {
		return p.write(ctx, s)
	})
	switch {
	case err == nil:
		p.flush(ctx)
		return nil
	case errors.Is(err, ErrCircuitOpen):
		p.buffer(s)
		return err
	default:
		return err
	}
}

func (p *Publisher) write(ctx context.Context, s *model.AnalysisSummary) error {
	data := string(s.JSON())

	pipe := p.client.Pipeline()
	pipe.Set(ctx, LatestKey(s), data, p.ttl)
	pipe.XAdd(ctx, &goredis.XAddArgs{
		Stream: StreamKey(s),
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]interface{}{"data": data},
	})
	pipe.Publish(ctx, Channel(s), data)

	start := time.Now()
	_, err := pipe.Exec(ctx)
	if p.OnWrite != nil {
		p.OnWrite(time.Since(start), err)
	}
	if err != nil {
		return fmt.Errorf("redis pipeline %s: %w", s.Key(), err)
	}
	return nil
}

func (p *Publisher) buffer(s *model.AnalysisSummary) {
	p.mu.Lock()
	if len(p.pending) >= p.maxBuf {
		p.pending = p.pending[1:]
	}
	p.pending = append(p.pending, s)
	p.mu.Unlock()

	if p.OnBuffer != nil {
		p.OnBuffer()
	}
}

// flush replays buffered summaries after a successful publish. Whatever
// fails again goes back into the buffer.
func (p *Publisher) flush(ctx context.Context) {
	p.mu.Lock()
	if len(p.pending) == 0 {
		p.mu.Unlock()
		return
	}
	toFlush := p.pending
	p.pending = nil
	p.mu.Unlock()

	flushed := 0
	for i, s := range toFlush {
		if err := p.write(ctx, s); err != nil {
			p.log.Warn("[redis] replay stopped", zap.Int("remaining", len(toFlush)-i), zap.Error(err))
			p.mu.Lock()
			p.pending = append(toFlush[i:len(toFlush):len(toFlush)], p.pending...)
			p.mu.Unlock()
			break
		}
		flushed++
	}

	p.log.Info("[redis] flushed buffered summaries", zap.Int("count", flushed))
	if p.OnFlush != nil {
		p.OnFlush(flushed)
	}
}

// PendingCount returns the number of buffered summaries.
func (p *Publisher) PendingCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}
