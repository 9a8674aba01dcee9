package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/adhocore/gronx"
)

// DefaultSchedule runs a cycle every 30 minutes.
const DefaultSchedule = "*/30 * * * *"

// Run executes cycles on the cron schedule expr until ctx is done. Cycles never
// overlap: the next tick is computed after the previous cycle returns.
func (m *Monitor) Run(ctx context.Context, expr string, runAtStart bool) error {
	if expr == "" {
		expr = DefaultSchedule
	}
	if !gronx.New().IsValid(expr) {
		return fmt.Errorf("invalid monitor schedule %q", expr)
	}
	slog.Info("monitor.started", "schedule", expr, "run_at_start", runAtStart)

	if runAtStart {
		m.cycle(ctx)
	}

	for {
		next, err := gronx.NextTickAfter(expr, time.Now(), false)
		if err != nil {
			return fmt.Errorf("next monitor tick: %w", err)
		}

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			slog.Info("monitor.stopped")
			return nil
		case <-timer.C:
			m.cycle(ctx)
		}
	}
}

func (m *Monitor) cycle(ctx context.Context) {
	rep, err := m.RunOnce(ctx)
	if err != nil {
		slog.Error("monitor.cycle_failed", "error", err)
		return
	}
	if rep.Err != nil {
		slog.Warn("monitor.cycle_errors", "error", rep.Err)
	}
}
