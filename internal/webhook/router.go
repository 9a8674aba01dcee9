// Package webhook receives page webhook deliveries and turns them into
// prioritized reply tasks.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/nextlevelbuilder/socialpilot/internal/bus"
	"github.com/nextlevelbuilder/socialpilot/internal/queue"
	"github.com/nextlevelbuilder/socialpilot/internal/store"
)

// Task priorities. Private messages outrank public comments.
const (
	PriorityMessage = 10
	PriorityComment = 5
)

// Routing outcomes reported to the Recorder.
const (
	OutcomeReceived      = "received"
	OutcomeEcho          = "echo"
	OutcomeDuplicate     = "duplicate"
	OutcomeUnprovisioned = "unprovisioned"
	OutcomeEnqueued      = "enqueued"
	OutcomeIgnored       = "ignored"
)

// Ledger is the dedup check used before enqueueing.
type Ledger interface {
	CheckAndRecord(fp bus.Fingerprint) bool
}

// Submitter accepts reply tasks.
type Submitter interface {
	Submit(fn queue.TaskFunc[string], priority int) *queue.Future[string]
}

// Processor runs a reply task.
type Processor interface {
	Process(ctx context.Context, in bus.Interaction, ps store.PageSettings) (string, error)
}

// Recorder counts routing outcomes per interaction kind.
type Recorder interface {
	ObserveInteraction(kind, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveInteraction(string, string) {}

// Router classifies webhook events and enqueues reply tasks.
type Router struct {
	ledger    Ledger
	pages     store.PageSettingsStore
	queue     Submitter
	processor Processor
	recorder  Recorder
}

// NewRouter creates a Router. rec may be nil.
func NewRouter(ledger Ledger, pages store.PageSettingsStore, q Submitter, p Processor, rec Recorder) *Router {
	if rec == nil {
		rec = nopRecorder{}
	}
	return &Router{ledger: ledger, pages: pages, queue: q, processor: p, recorder: rec}
}

// Handle routes one webhook body. It never fails: malformed parts are skipped
// and every entry is handled independently.
func (r *Router) Handle(ctx context.Context, body []byte) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		slog.Debug("webhook.malformed_body", "error", err)
		return
	}
	if env.Object != "page" {
		slog.Debug("webhook.ignored_object", "object", env.Object)
		return
	}

	for i, raw := range env.Entry {
		pageID, events, skipped, err := parseEntry(raw)
		if err != nil {
			slog.Debug("webhook.malformed_entry", "index", i, "error", err)
			continue
		}
		if skipped > 0 {
			slog.Debug("webhook.malformed_events", "page", pageID, "skipped", skipped)
		}
		for _, ev := range events {
			r.route(ctx, ev)
		}
	}
}

func (r *Router) route(ctx context.Context, ev Event) {
	switch e := ev.(type) {
	case MessageEvent:
		r.routeMessage(ctx, e)
	case FeedChangeEvent:
		r.routeComment(ctx, e)
	default:
		r.recorder.ObserveInteraction("other", OutcomeIgnored)
	}
}

func (r *Router) routeMessage(ctx context.Context, e MessageEvent) {
	kind := string(bus.KindMessage)
	r.recorder.ObserveInteraction(kind, OutcomeReceived)

	if e.IsEcho {
		r.recorder.ObserveInteraction(kind, OutcomeEcho)
		return
	}
	if e.Text == "" || e.SenderID == "" {
		r.recorder.ObserveInteraction(kind, OutcomeIgnored)
		return
	}

	in := bus.Interaction{
		SourceChannelID: e.PageID,
		CounterpartyID:  e.SenderID,
		Kind:            bus.KindMessage,
		RawText:         e.Text,
		ReceivedAt:      e.Timestamp,
		ExternalID:      e.MID,
	}
	r.enqueue(ctx, in, PriorityMessage)
}

func (r *Router) routeComment(ctx context.Context, e FeedChangeEvent) {
	if e.Item != "comment" || e.Verb != "add" {
		r.recorder.ObserveInteraction("feed", OutcomeIgnored)
		return
	}
	kind := string(bus.KindComment)
	r.recorder.ObserveInteraction(kind, OutcomeReceived)

	if e.FromID == e.PageID {
		r.recorder.ObserveInteraction(kind, OutcomeEcho)
		return
	}
	if e.CommentID == "" || e.Message == "" {
		r.recorder.ObserveInteraction(kind, OutcomeIgnored)
		return
	}

	in := bus.Interaction{
		SourceChannelID: e.PageID,
		CounterpartyID:  e.FromID,
		Kind:            bus.KindComment,
		RawText:         e.Message,
		ReceivedAt:      e.Timestamp,
		ExternalID:      e.CommentID,
		PostID:          e.PostID,
	}
	r.enqueue(ctx, in, PriorityComment)
}

func (r *Router) enqueue(ctx context.Context, in bus.Interaction, priority int) {
	kind := string(in.Kind)

	fp := in.Fingerprint()
	if !r.ledger.CheckAndRecord(fp) {
		r.recorder.ObserveInteraction(kind, OutcomeDuplicate)
		slog.Debug("webhook.duplicate", "kind", kind, "fingerprint", fp)
		return
	}

	ps, err := r.pages.GetPageSettings(ctx, in.SourceChannelID)
	if err != nil || ps == nil || !ps.Enabled {
		r.recorder.ObserveInteraction(kind, OutcomeUnprovisioned)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			slog.Warn("webhook.page_lookup_failed", "page", in.SourceChannelID, "error", err)
		} else {
			slog.Debug("webhook.unprovisioned", "page", in.SourceChannelID)
		}
		return
	}
	settings := *ps

	r.queue.Submit(func(ctx context.Context) (string, error) {
		start := time.Now()
		id, err := r.processor.Process(ctx, in, settings)
		if err != nil {
			slog.Warn("webhook.task_failed",
				"kind", kind,
				"page", in.SourceChannelID,
				"counterparty", in.CounterpartyID,
				"preview", bus.Preview(in.RawText),
				"duration", time.Since(start),
				"error", err,
			)
		}
		return id, err
	}, priority)

	r.recorder.ObserveInteraction(kind, OutcomeEnqueued)
	slog.Info("webhook.enqueued", "kind", kind, "page", in.SourceChannelID, "priority", priority)
}
