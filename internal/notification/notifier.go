// Package notification delivers alerts about fresh crossing signals and
// failed runs to external channels (log, webhook, Telegram).
package notification

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// AlertLevel represents the severity of an alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// Alert represents a notification to be sent.
type Alert struct {
	Level    AlertLevel `json:"level"`
	Title    string     `json:"title"`
	Message  string     `json:"message"`
	Symbol   string     `json:"symbol,omitempty"`
	Strategy string     `json:"strategy,omitempty"`
	RunID    string     `json:"run_id,omitempty"`
	TS       time.Time  `json:"ts"`
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert Alert) error
}

// LogNotifier writes alerts to the structured log (useful for development).
type LogNotifier struct {
	log *zap.Logger
}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier(log *zap.Logger) *LogNotifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Send(_ context.Context, alert Alert) error {
	fields := []zap.Field{
		zap.String("level", string(alert.Level)),
		zap.String("title", alert.Title),
		zap.String("message", alert.Message),
	}
	if alert.Symbol != "" {
		fields = append(fields, zap.String("symbol", alert.Symbol))
	}
	if alert.RunID != "" {
		fields = append(fields, zap.String("run_id", alert.RunID))
	}
	n.log.Info("[notify] alert", fields...)
	return nil
}

// Multi fans an alert out to every backend. All backends are tried; the
// returned error joins every failure.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, alert Alert) error {
	var errs []error
	for _, n := range m {
		if err := n.Send(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
