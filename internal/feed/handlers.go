package feed

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func setCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

// Router is satisfied by *http.ServeMux and metrics.Server.
type Router interface {
	Handle(pattern string, handler http.Handler)
}

// RegisterRoutes mounts /ws, /api/latest and /api/missed.
//
//	/ws?symbols=A,B                     live envelopes, newest state first
//	/api/latest?symbols=A,B             newest envelope per channel
//	/api/missed?channel=C&from=N&to=M   buffered envelopes for gap backfill
func RegisterRoutes(mux Router, hub *Hub) {
	mux.Handle("/ws", http.HandlerFunc(hub.ServeWS))
	mux.Handle("/api/latest", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setCORS(w)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(hub.Latest(splitList(r.URL.Query().Get("symbols"))))
	}))
	mux.Handle("/api/missed", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setCORS(w)
		q := r.URL.Query()
		channel := q.Get("channel")
		from, err1 := strconv.ParseInt(q.Get("from"), 10, 64)
		to, err2 := strconv.ParseInt(q.Get("to"), 10, 64)
		if channel == "" || err1 != nil || err2 != nil || to < from {
			http.Error(w, `{"error":"channel, from and to are required"}`, http.StatusBadRequest)
			return
		}
		msgs := hub.Missed(channel, from, to)
		out := make([]json.RawMessage, len(msgs))
		for i, m := range msgs {
			out[i] = m
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(out)
	}))
}

// ServeWS upgrades the request and registers a client.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("[feed] ws upgrade failed", zap.Error(err))
		return
	}
	c := &Client{
		conn: conn,
		send: make(chan []byte, 256),
		hub:  h,
	}
	c.setSymbols(splitList(r.URL.Query().Get("symbols")))

	// Queue the current state before the client becomes visible to
	// Broadcast, so the newest envelope always precedes live ones.
	c.sendInitialState()
	n := h.addClient(c)
	h.log.Debug("[feed] ws client connected", zap.Int("clients", n))

	go c.writePump()
	go c.readPump()
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
