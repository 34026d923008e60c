// Package feed streams analysis summaries to browser clients over
// WebSocket. Summaries arrive either from the Redis pub:analysis:* channels
// or directly from the service, and are fanned out per symbol with a
// per-channel sequence number so clients can detect and backfill gaps.
package feed

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"trading-signals/internal/model"
	redisstore "trading-signals/internal/store/redis"
)

// Pattern matches every per-symbol analysis channel.
const Pattern = "pub:analysis:*"

const replayDepth = 200

type latestEntry struct {
	Envelope []byte
	Seq      int64
}

// Hub tracks connected clients, the newest envelope per channel and a
// replay buffer per channel.
type Hub struct {
	log *zap.Logger
	now func() time.Time

	mu         sync.RWMutex
	clients    map[*Client]bool
	latest     map[string]latestEntry
	seqs       map[string]int64
	replayBufs map[string]*ReplayBuffer
}

// NewHub creates an empty hub.
func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		log:        log,
		now:        time.Now,
		clients:    make(map[*Client]bool),
		latest:     make(map[string]latestEntry),
		seqs:       make(map[string]int64),
		replayBufs: make(map[string]*ReplayBuffer),
	}
}

// Publish broadcasts a summary on its symbol channel.
func (h *Hub) Publish(_ context.Context, s *model.AnalysisSummary) error {
	h.Broadcast(redisstore.Channel(s), s.JSON())
	return nil
}

// Broadcast wraps data in an envelope and sends it to every client
// subscribed to the channel's symbol. Slow clients drop messages.
func (h *Hub) Broadcast(channel string, data []byte) {
	now := h.now().UTC()

	h.mu.Lock()
	defer h.mu.Unlock()
	h.seqs[channel]++
	seq := h.seqs[channel]

	// {"channel":"...","data":...,"ts":"...","seq":N}
	buf := make([]byte, 0, len(channel)+len(data)+96)
	buf = append(buf, `{"channel":"`...)
	buf = append(buf, channel...)
	buf = append(buf, `","data":`...)
	buf = append(buf, data...)
	buf = append(buf, `,"ts":"`...)
	buf = now.AppendFormat(buf, time.RFC3339Nano)
	buf = append(buf, `","seq":`...)
	buf = strconv.AppendInt(buf, seq, 10)
	buf = append(buf, '}')

	h.latest[channel] = latestEntry{Envelope: buf, Seq: seq}
	rb, ok := h.replayBufs[channel]
	if !ok {
		rb = NewReplayBuffer(replayDepth)
		h.replayBufs[channel] = rb
	}
	// Replay and fan-out stay under the lock so seq order is preserved.
	rb.Push(seq, buf)

	sym := SymbolOf(channel)
	for c := range h.clients {
		if !c.wants(sym) {
			continue
		}
		select {
		case c.send <- buf:
		default:
		}
	}
}

// SymbolOf returns the symbol of a pub:analysis:{symbol} channel.
func SymbolOf(channel string) string {
	return strings.TrimPrefix(channel, "pub:analysis:")
}

// Latest returns the newest envelope per channel, optionally limited to
// symbols.
func (h *Hub) Latest(symbols []string) map[string]json.RawMessage {
	want := toSet(symbols)
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[string]json.RawMessage, len(h.latest))
	for ch, e := range h.latest {
		if len(want) > 0 && !want[SymbolOf(ch)] {
			continue
		}
		out[ch] = e.Envelope
	}
	return out
}

// Missed returns buffered envelopes for channel with seq in [from, to].
func (h *Hub) Missed(channel string, from, to int64) [][]byte {
	h.mu.RLock()
	rb, ok := h.replayBufs[channel]
	h.mu.RUnlock()
	if !ok {
		return nil
	}
	entries := rb.Range(from, to)
	out := make([][]byte, len(entries))
	for i, e := range entries {
		out[i] = e.Data
	}
	return out
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) addClient(c *Client) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = true
	return len(h.clients)
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Relay subscribes to Pattern on Redis and broadcasts every message.
// Blocks until ctx is cancelled.
func (h *Hub) Relay(ctx context.Context, rdb *goredis.Client) {
	pubsub := rdb.PSubscribe(ctx, Pattern)
	defer pubsub.Close()
	h.log.Info("[feed] relaying redis channels", zap.String("pattern", Pattern))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.Broadcast(msg.Channel, []byte(msg.Payload))
		}
	}
}

func toSet(items []string) map[string]bool {
	if len(items) == 0 {
		return nil
	}
	set := make(map[string]bool, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			set[s] = true
		}
	}
	return set
}
