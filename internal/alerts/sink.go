// Package alerts persists deduplicated health alerts and fans them out to
// chat notifiers.
package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nextlevelbuilder/socialpilot/internal/store"
)

const notifyTimeout = 10 * time.Second

// Notifier pushes a newly raised alert to an external channel.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, a store.Alert) error
}

// Sink records alerts and audit log entries.
type Sink struct {
	alerts    store.AlertStore
	logs      store.LogStore
	notifiers []Notifier
}

func NewSink(alerts store.AlertStore, logs store.LogStore, notifiers ...Notifier) *Sink {
	return &Sink{alerts: alerts, logs: logs, notifiers: notifiers}
}

// Raise stores a unless an active alert with the same strategy and message
// already exists. Only a newly created alert is logged and notified.
func (s *Sink) Raise(ctx context.Context, a store.Alert) (bool, error) {
	created, err := s.alerts.CreateAlertIfAbsent(ctx, &a)
	if err != nil {
		return false, fmt.Errorf("create alert: %w", err)
	}
	if !created {
		slog.Debug("alerts.already_active", "strategy", a.StrategyID, "message", a.Message)
		return false, nil
	}

	slog.Warn("alerts.raised", "strategy", a.StrategyID, "severity", a.Severity, "message", a.Message)

	if err := s.Log(ctx, store.LogEntry{
		StrategyID: a.StrategyID,
		AdminID:    a.AdminID,
		EventType:  store.EventAlert,
		Message:    fmt.Sprintf("%s alert raised: %s", a.Severity, a.Message),
	}); err != nil {
		slog.Warn("alerts.log_failed", "strategy", a.StrategyID, "error", err)
	}

	for _, n := range s.notifiers {
		nctx, cancel := context.WithTimeout(ctx, notifyTimeout)
		if err := n.Notify(nctx, a); err != nil {
			slog.Warn("alerts.notify_failed", "notifier", n.Name(), "strategy", a.StrategyID, "error", err)
		}
		cancel()
	}
	return true, nil
}

// Log appends an audit entry.
func (s *Sink) Log(ctx context.Context, e store.LogEntry) error {
	if err := s.logs.AppendLog(ctx, &e); err != nil {
		return fmt.Errorf("append %s log: %w", e.EventType, err)
	}
	return nil
}

// formatAlert renders the chat notification body.
func formatAlert(a store.Alert) string {
	return fmt.Sprintf("[%s] Strategy %s (admin %s): %s",
		strings.ToUpper(a.Severity), a.StrategyID, a.AdminID, a.Message)
}
