package notification

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"trading-signals/internal/model"
)

type failing struct{ err error }

func (f failing) Send(context.Context, Alert) error { return f.err }

type recording struct{ got []Alert }

func (r *recording) Send(_ context.Context, a Alert) error {
	r.got = append(r.got, a)
	return nil
}

func TestLogNotifier(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	n := NewLogNotifier(zap.New(core))

	require.NoError(t, n.Send(context.Background(), Alert{Level: AlertInfo, Title: "t", Message: "m", Symbol: "ACME"}))
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "[notify] alert", entry.Message)
	assert.Equal(t, "ACME", entry.ContextMap()["symbol"])
}

func TestMulti_TriesEveryBackend(t *testing.T) {
	rec := &recording{}
	errA, errB := errors.New("a"), errors.New("b")
	m := Multi{failing{errA}, rec, failing{errB}}

	err := m.Send(context.Background(), Alert{Title: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
	assert.Len(t, rec.got, 1)

	assert.NoError(t, Multi{rec}.Send(context.Background(), Alert{}))
}

func TestWebhookNotifier(t *testing.T) {
	var got Alert
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, nil)
	require.NoError(t, n.Send(context.Background(), Alert{Level: AlertWarning, Title: "hello", Symbol: "ACME"}))
	assert.Equal(t, AlertWarning, got.Level)
	assert.Equal(t, "hello", got.Title)
	assert.Equal(t, "ACME", got.Symbol)
	assert.False(t, got.TS.IsZero())
}

func TestWebhookNotifier_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := NewWebhookNotifier(srv.URL, nil).Send(context.Background(), Alert{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestTelegramNotifier(t *testing.T) {
	var (
		path    string
		payload map[string]string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(b, &payload))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewTelegramNotifier("TOKEN", "42", nil).WithBaseURL(srv.URL + "/")
	require.NoError(t, n.Send(context.Background(), Alert{Level: AlertCritical, Title: "BUY ACME", Message: "at 12.5"}))

	assert.Equal(t, "/botTOKEN/sendMessage", path)
	assert.Equal(t, "42", payload["chat_id"])
	assert.Equal(t, "MarkdownV2", payload["parse_mode"])
	assert.Contains(t, payload["text"], "*BUY ACME*")
	assert.Contains(t, payload["text"], `at 12\.5`)
}

func TestEscapeMarkdown(t *testing.T) {
	assert.Equal(t, `a\_b\-c\.d`, escapeMarkdown("a_b-c.d"))
	assert.Equal(t, "plain", escapeMarkdown("plain"))
}

func TestSignalAlert(t *testing.T) {
	day := time.Date(2024, 1, 9, 0, 0, 0, 0, time.UTC)
	sum := model.AnalysisSummary{
		RunID: "r1", Symbol: "ACME", Strategy: "SMA_2/SMA_4",
		From: day.AddDate(0, 0, -8), To: day, Trades: 1, CumulativeReturnPct: -33.333,
	}
	a := SignalAlert(sum, model.CrossEvent{Direction: model.Exit, TS: day, Price: 8})

	assert.Equal(t, AlertInfo, a.Level)
	assert.Equal(t, "SELL ACME (SMA_2/SMA_4)", a.Title)
	assert.Contains(t, a.Message, "EXIT crossing on 2024-01-09 at 8.00")
	assert.Contains(t, a.Message, "-33.33%")
	assert.Equal(t, "r1", a.RunID)
}

func TestFailureAlert(t *testing.T) {
	_, ok := FailureAlert("r1", 0, 5, time.Now())
	assert.False(t, ok)

	a, ok := FailureAlert("r1", 2, 5, time.Now())
	require.True(t, ok)
	assert.Equal(t, AlertWarning, a.Level)

	a, ok = FailureAlert("r1", 5, 5, time.Now())
	require.True(t, ok)
	assert.Equal(t, AlertCritical, a.Level)
}
