// Package notification delivers trading alerts to external channels
// (Telegram, webhooks, the log) without blocking the trading loop.
package notification

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// AlertLevel is the severity of an alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

func (l AlertLevel) slogLevel() slog.Level {
	switch l {
	case AlertWarning:
		return slog.LevelWarn
	case AlertCritical:
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Alert is one message about an agent or the bot. Time is when it was
// raised, not when it was delivered.
type Alert struct {
	Level   AlertLevel
	Title   string
	Message string
	Time    time.Time
}

// Notifier delivers alerts to one backend.
type Notifier interface {
	Send(ctx context.Context, alert Alert) error
}

// LogNotifier writes alerts to a slog logger.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier logs to slog.Default.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	l := n.logger
	if l == nil {
		l = slog.Default()
	}
	l.Log(ctx, alert.Level.slogLevel(), "alert", "title", alert.Title, "message", alert.Message)
	return nil
}

// Multi sends every alert to all backends and joins their errors.
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
