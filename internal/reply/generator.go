// Package reply turns an inbound interaction into an AI-written answer and
// delivers it back through the page messaging API.
package reply

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nextlevelbuilder/socialpilot/internal/bus"
	"github.com/nextlevelbuilder/socialpilot/internal/providers"
	"github.com/nextlevelbuilder/socialpilot/internal/store"
)

const (
	DefaultTimeout   = 30 * time.Second
	defaultMaxTokens = 300
)

const systemPrompt = `You are the assistant for a real-estate agency's social media page.
You answer prospective buyers and renters about listings, viewings, prices and neighbourhoods.
Be warm, concise and accurate. Never invent prices, addresses or availability you were not given;
invite the person to share details or book a viewing instead.
Respond with ONLY the reply text, nothing else.`

const (
	messageInstruction = "Write a private message reply of at most 3 sentences to this inquiry."
	commentInstruction = "Write a short public reply (at most 2 sentences) to this comment on our post. Do not include personal details; suggest continuing in private messages if needed."
)

// Deliverer sends replies through the channel-specific API.
type Deliverer interface {
	SendMessage(ctx context.Context, accessToken, recipientID, text string) (string, error)
	ReplyToComment(ctx context.Context, accessToken, commentID, text string) (string, error)
}

// Config wires a Generator.
type Config struct {
	Provider     providers.Provider
	Deliverer    Deliverer
	Interactions store.InteractionStore
	Model        string
	Timeout      time.Duration
}

// Generator writes and delivers replies. Safe for concurrent use.
type Generator struct {
	provider     providers.Provider
	deliverer    Deliverer
	interactions store.InteractionStore
	model        string
	timeout      time.Duration
}

func New(cfg Config) *Generator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Generator{
		provider:     cfg.Provider,
		deliverer:    cfg.Deliverer,
		interactions: cfg.Interactions,
		model:        cfg.Model,
		timeout:      cfg.Timeout,
	}
}

// Generate makes exactly one AI call and returns the trimmed reply text.
func (g *Generator) Generate(ctx context.Context, in bus.Interaction) (string, error) {
	if g.provider == nil {
		return "", errors.New("AI provider not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.provider.Chat(ctx, providers.ChatRequest{
		Model: g.model,
		Messages: []providers.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildPrompt(in)},
		},
		Options: map[string]interface{}{providers.OptMaxTokens: defaultMaxTokens},
	})
	if err != nil {
		return "", fmt.Errorf("generate reply: %w", err)
	}
	text := strings.TrimSpace(resp.Content)
	if text == "" {
		return "", fmt.Errorf("generate reply: %w", providers.ErrEmptyCompletion)
	}
	return text, nil
}

func buildPrompt(in bus.Interaction) string {
	var b strings.Builder
	if in.Kind == bus.KindComment {
		b.WriteString(commentInstruction)
	} else {
		b.WriteString(messageInstruction)
	}
	b.WriteString("\n\nInbound ")
	b.WriteString(string(in.Kind))
	b.WriteString(":\n")
	b.WriteString(strings.TrimSpace(in.RawText))
	return b.String()
}

// Deliver dispatches text through the reply API for the interaction's kind
// and returns the provider-assigned id.
func (g *Generator) Deliver(ctx context.Context, in bus.Interaction, text string, ps store.PageSettings) (string, error) {
	switch in.Kind {
	case bus.KindMessage:
		return g.deliverer.SendMessage(ctx, ps.AccessToken, in.CounterpartyID, text)
	case bus.KindComment:
		return g.deliverer.ReplyToComment(ctx, ps.AccessToken, in.ExternalID, text)
	default:
		return "", fmt.Errorf("unsupported interaction kind %q", in.Kind)
	}
}

// Process is the queued task body: generate, deliver, persist. Any failure
// fails the task; nothing is retried here.
func (g *Generator) Process(ctx context.Context, in bus.Interaction, ps store.PageSettings) (string, error) {
	ctx, span := otel.Tracer("socialpilot/reply").Start(ctx, "reply.process",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("interaction.kind", string(in.Kind)),
			attribute.String("page.id", ps.PageID),
		),
	)
	defer span.End()

	id, err := g.process(ctx, in, ps)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return id, err
}

func (g *Generator) process(ctx context.Context, in bus.Interaction, ps store.PageSettings) (string, error) {
	text, err := g.Generate(ctx, in)
	if err != nil {
		return "", err
	}

	replyID, err := g.Deliver(ctx, in, text, ps)
	if err != nil {
		return "", fmt.Errorf("deliver %s reply: %w", in.Kind, err)
	}

	if g.interactions != nil {
		rec := &store.InteractionRecord{
			AdminID:        ps.AdminID,
			PageID:         ps.PageID,
			ExternalID:     in.ExternalID,
			Kind:           string(in.Kind),
			CounterpartyID: in.CounterpartyID,
			InboundText:    in.RawText,
			ReplyText:      text,
			ReplyID:        replyID,
		}
		if err := g.interactions.CreateInteraction(ctx, rec); err != nil {
			return "", fmt.Errorf("persist interaction: %w", err)
		}
	}

	slog.Info("reply.delivered",
		"kind", in.Kind,
		"page", ps.PageID,
		"counterparty", in.CounterpartyID,
		"reply_id", replyID,
		"preview", bus.Preview(text),
	)
	return replyID, nil
}
