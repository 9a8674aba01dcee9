// Package monitor audits active content strategies: it grades publishing
// cadence, raises alerts, QA-checks pending posts and repairs what it can.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/nextlevelbuilder/socialpilot/internal/providers"
	"github.com/nextlevelbuilder/socialpilot/internal/store"
)

const (
	DefaultTimeout          = 30 * time.Second
	DefaultFallbackImageURL = "https://images.unsplash.com/photo-1560518883-ce09059eeffa"
)

const rewriteSystemPrompt = `You are a copywriter for a real-estate agency's social media page.
Rewrite the draft post below into a complete, engaging post of 2 to 4 sentences.
Remove any placeholders, template variables or bracketed notes; never leave text like [Insert Link], {{name}}, undefined or null.
Respond with ONLY the post text, nothing else.`

const fixSystemPrompt = `You are a copywriter for a real-estate agency's social media page.
The page has been silent and needs one fresh post to re-engage its audience.
Write a single engaging post of 2 to 4 sentences. No placeholders or bracketed notes.
Respond with ONLY the post text, nothing else.`

// AlertSink records alerts and audit entries.
type AlertSink interface {
	Raise(ctx context.Context, a store.Alert) (bool, error)
	Log(ctx context.Context, e store.LogEntry) error
}

// Recorder observes completed cycles.
type Recorder interface {
	ObserveMonitorCycle(statusCounts map[string]int, d time.Duration, failed bool)
}

// Config wires a Monitor.
type Config struct {
	Strategies       store.StrategyStore
	Posts            store.PostStore
	Sink             AlertSink
	Provider         providers.Provider
	Recorder         Recorder
	FallbackImageURL string
	Timeout          time.Duration

	// Now overrides the clock in tests.
	Now func() time.Time
}

// Monitor runs health-check cycles. A single Monitor must not run overlapping
// cycles; Run serializes them.
type Monitor struct {
	strategies store.StrategyStore
	posts      store.PostStore
	sink       AlertSink
	provider   providers.Provider
	recorder   Recorder
	fallback   string
	timeout    time.Duration
	now        func() time.Time
}

func New(cfg Config) *Monitor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.FallbackImageURL == "" {
		cfg.FallbackImageURL = DefaultFallbackImageURL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Monitor{
		strategies: cfg.Strategies,
		posts:      cfg.Posts,
		sink:       cfg.Sink,
		provider:   cfg.Provider,
		recorder:   cfg.Recorder,
		fallback:   cfg.FallbackImageURL,
		timeout:    cfg.Timeout,
		now:        cfg.Now,
	}
}

// StrategyReport is the outcome of one strategy's checks.
type StrategyReport struct {
	StrategyID   uuid.UUID              `json:"strategy_id"`
	Name         string                 `json:"name"`
	Verdict      Verdict                `json:"verdict"`
	AlertCreated bool                   `json:"alert_created"`
	Defects      map[uuid.UUID][]Defect `json:"defects,omitempty"`
	Corrected    []uuid.UUID            `json:"corrected,omitempty"`
	FixPostID    *uuid.UUID             `json:"fix_post_id,omitempty"`
}

// Report summarizes a cycle. Err aggregates step failures; a non-nil Err
// does not mean other strategies were skipped.
type Report struct {
	StartedAt  time.Time        `json:"started_at"`
	Duration   time.Duration    `json:"duration"`
	Strategies []StrategyReport `json:"strategies"`
	Err        error            `json:"-"`
}

// StatusCounts tallies strategies per verdict status.
func (r *Report) StatusCounts() map[string]int {
	counts := map[string]int{StatusHealthy: 0, StatusAtRisk: 0, StatusCritical: 0}
	for _, s := range r.Strategies {
		counts[s.Verdict.Status]++
	}
	return counts
}

// RunOnce executes a full cycle. The returned error is non-nil only when the
// strategy scan itself failed or the cycle panicked; per-step failures are in
// Report.Err.
func (m *Monitor) RunOnce(ctx context.Context) (rep *Report, err error) {
	rep = &Report{StartedAt: m.now()}

	ctx, span := otel.Tracer("socialpilot/monitor").Start(ctx, "monitor.scan")
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("monitor cycle panicked: %v", r)
			slog.Error("monitor.panic", "panic", r)
		}
		rep.Duration = time.Since(rep.StartedAt)
		failed := err != nil || rep.Err != nil
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.SetAttributes(attribute.Int("monitor.strategies", len(rep.Strategies)))
		span.End()
		if m.recorder != nil {
			m.recorder.ObserveMonitorCycle(rep.StatusCounts(), rep.Duration, failed)
		}
	}()

	strategies, err := m.strategies.ListActiveStrategies(ctx)
	if err != nil {
		return rep, fmt.Errorf("scan strategies: %w", err)
	}

	var errs *multierror.Error
	for _, st := range strategies {
		sr, stepErrs := m.checkStrategy(ctx, st)
		rep.Strategies = append(rep.Strategies, sr)
		for _, e := range stepErrs {
			errs = multierror.Append(errs, fmt.Errorf("strategy %s: %w", st.ID, e))
		}
	}
	rep.Err = errs.ErrorOrNil()

	slog.Info("monitor.cycle_complete",
		"strategies", len(rep.Strategies),
		"critical", rep.StatusCounts()[StatusCritical],
		"errors", errCount(errs),
	)
	return rep, nil
}

func errCount(errs *multierror.Error) int {
	if errs == nil {
		return 0
	}
	return len(errs.Errors)
}

func (m *Monitor) checkStrategy(ctx context.Context, st store.Strategy) (StrategyReport, []error) {
	var errs []error
	v := Assess(st, m.now())
	sr := StrategyReport{StrategyID: st.ID, Name: st.Name, Verdict: v}

	if v.Status != StatusHealthy {
		slog.Warn("monitor.unhealthy", "strategy", st.ID, "status", v.Status, "gap_days", fmt.Sprintf("%.1f", v.GapDays))
		if err := m.sink.Log(ctx, store.LogEntry{
			StrategyID: st.ID,
			AdminID:    st.AdminID,
			EventType:  store.EventCheck,
			Message:    fmt.Sprintf("Health check %s: %s", v.Status, strings.Join(v.Issues, "; ")),
		}); err != nil {
			errs = append(errs, err)
		}

		created, err := m.sink.Raise(ctx, store.Alert{
			StrategyID: st.ID,
			AdminID:    st.AdminID,
			Severity:   v.Severity(),
			Message:    v.AlertMessage(),
		})
		if err != nil {
			errs = append(errs, err)
		}
		sr.AlertCreated = created
	}

	for _, p := range st.Posts {
		if p.Status != store.PostPending {
			continue
		}
		defects := Inspect(p)
		if len(defects) == 0 {
			continue
		}
		if sr.Defects == nil {
			sr.Defects = make(map[uuid.UUID][]Defect)
		}
		sr.Defects[p.ID] = defects

		if err := m.sink.Log(ctx, store.LogEntry{
			StrategyID: st.ID,
			AdminID:    st.AdminID,
			EventType:  store.EventCheck,
			Message:    fmt.Sprintf("QA post %s: %s", p.ID, joinDefects(defects)),
		}); err != nil {
			errs = append(errs, err)
		}

		if !correctable(defects) {
			continue
		}
		if err := m.AutoCorrect(ctx, st, p); err != nil {
			slog.Warn("monitor.autocorrect_failed", "strategy", st.ID, "post", p.ID, "error", err)
			errs = append(errs, err)
			continue
		}
		sr.Corrected = append(sr.Corrected, p.ID)
	}

	if v.Status == StatusCritical && v.MissedPosts > 0 {
		if waiting := awaitingPublication(st, m.now()); waiting != nil {
			slog.Info("monitor.autofix_skipped", "strategy", st.ID, "pending_post", waiting.ID)
			return sr, errs
		}
		post, err := m.AutoFix(ctx, st, v)
		if post != nil {
			sr.FixPostID = &post.ID
		}
		if err != nil {
			slog.Warn("monitor.autofix_failed", "strategy", st.ID, "error", err)
			errs = append(errs, err)
		}
	}
	return sr, errs
}

// awaitingPublication returns a pending post that fell due after the strategy's
// last publication, such as an earlier emergency post. Another fix would only
// queue behind it.
func awaitingPublication(st store.Strategy, now time.Time) *store.Post {
	ref := st.CreatedAt
	if st.LastPostedAt != nil {
		ref = *st.LastPostedAt
	}
	for i := range st.Posts {
		p := &st.Posts[i]
		if p.Status == store.PostPending && !p.ScheduledTime.Before(ref) && !p.ScheduledTime.After(now) {
			return p
		}
	}
	return nil
}

// AutoCorrect rewrites a post's text and persists it. The image is never touched.
func (m *Monitor) AutoCorrect(ctx context.Context, st store.Strategy, p store.Post) error {
	var b strings.Builder
	if st.Theme != "" {
		fmt.Fprintf(&b, "Content theme: %s\n", st.Theme)
	}
	fmt.Fprintf(&b, "Draft post:\n%s", strings.TrimSpace(p.Content))

	text, err := m.complete(ctx, rewriteSystemPrompt, b.String())
	if err != nil {
		return fmt.Errorf("rewrite post %s: %w", p.ID, err)
	}
	if err := m.posts.UpdatePostContent(ctx, p.ID, text); err != nil {
		return fmt.Errorf("update post %s: %w", p.ID, err)
	}
	slog.Info("monitor.autocorrected", "strategy", st.ID, "post", p.ID)

	return m.sink.Log(ctx, store.LogEntry{
		StrategyID: st.ID,
		AdminID:    st.AdminID,
		EventType:  store.EventUpdate,
		Message:    fmt.Sprintf("Auto-corrected content of post %s", p.ID),
	})
}

// AutoFix synthesizes one emergency post scheduled immediately.
func (m *Monitor) AutoFix(ctx context.Context, st store.Strategy, v Verdict) (*store.Post, error) {
	theme := st.Theme
	if theme == "" {
		theme = st.Name
	}
	prompt := fmt.Sprintf("Strategy type: %s\nContent theme: %s\nDays without a post: %d\nWrite the post now.",
		st.Type, theme, v.MissedPosts)

	text, err := m.complete(ctx, fixSystemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate fix post: %w", err)
	}

	post := &store.Post{
		StrategyID:    st.ID,
		Content:       text,
		ImageURL:      m.fallback,
		Status:        store.PostPending,
		ScheduledTime: m.now(),
	}
	if err := m.posts.CreatePost(ctx, post); err != nil {
		return nil, fmt.Errorf("create fix post: %w", err)
	}
	slog.Info("monitor.autofixed", "strategy", st.ID, "post", post.ID, "missed", v.MissedPosts)

	if err := m.sink.Log(ctx, store.LogEntry{
		StrategyID: st.ID,
		AdminID:    st.AdminID,
		EventType:  store.EventFix,
		Message:    fmt.Sprintf("Created emergency post %s after %d missed days", post.ID, v.MissedPosts),
	}); err != nil {
		return post, err
	}
	return post, nil
}

func (m *Monitor) complete(ctx context.Context, system, user string) (string, error) {
	if m.provider == nil {
		return "", errors.New("AI provider not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	return providers.Complete(ctx, m.provider, system, user, nil)
}
