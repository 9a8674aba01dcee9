package reply

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextlevelbuilder/socialpilot/internal/bus"
	"github.com/nextlevelbuilder/socialpilot/internal/providers"
	"github.com/nextlevelbuilder/socialpilot/internal/store"
)

type fakeProvider struct {
	mu    sync.Mutex
	reply string
	err   error
	calls []providers.ChatRequest
}

func (f *fakeProvider) Chat(_ context.Context, req providers.ChatRequest) (*providers.ChatResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if f.err != nil {
		return nil, f.err
	}
	return &providers.ChatResponse{Content: f.reply}, nil
}

func (f *fakeProvider) DefaultModel() string { return "test" }
func (f *fakeProvider) Name() string         { return "fake" }

type sent struct {
	kind, token, target, text string
}

type fakeDeliverer struct {
	sent []sent
	err  error
}

func (f *fakeDeliverer) SendMessage(_ context.Context, token, recipient, text string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, sent{"message", token, recipient, text})
	return "mid.1", nil
}

func (f *fakeDeliverer) ReplyToComment(_ context.Context, token, comment, text string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, sent{"comment", token, comment, text})
	return "c.2", nil
}

type fakeInteractions struct {
	recs []store.InteractionRecord
	err  error
}

func (f *fakeInteractions) CreateInteraction(_ context.Context, rec *store.InteractionRecord) error {
	if f.err != nil {
		return f.err
	}
	f.recs = append(f.recs, *rec)
	return nil
}

var page = store.PageSettings{PageID: "page-1", AccessToken: "tok", AdminID: "admin-1", Enabled: true}

func TestProcessMessage(t *testing.T) {
	p := &fakeProvider{reply: "  Yes, it is still available! Want to book a viewing?\n"}
	d := &fakeDeliverer{}
	st := &fakeInteractions{}
	g := New(Config{Provider: p, Deliverer: d, Interactions: st})

	in := bus.Interaction{SourceChannelID: "page-1", CounterpartyID: "user-9", Kind: bus.KindMessage, RawText: "Is the loft still available?", ExternalID: "m_1"}
	id, err := g.Process(context.Background(), in, page)
	require.NoError(t, err)
	assert.Equal(t, "mid.1", id)

	require.Len(t, p.calls, 1)
	msgs := p.calls[0].Messages
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0].Content, "real-estate")
	assert.Contains(t, msgs[1].Content, "Is the loft still available?")
	assert.Contains(t, msgs[1].Content, "private message")

	require.Len(t, d.sent, 1)
	assert.Equal(t, sent{"message", "tok", "user-9", "Yes, it is still available! Want to book a viewing?"}, d.sent[0])

	require.Len(t, st.recs, 1)
	rec := st.recs[0]
	assert.Equal(t, "admin-1", rec.AdminID)
	assert.Equal(t, "m_1", rec.ExternalID)
	assert.Equal(t, "message", rec.Kind)
	assert.Equal(t, "mid.1", rec.ReplyID)
	assert.Equal(t, "Yes, it is still available! Want to book a viewing?", rec.ReplyText)
}

func TestProcessCommentRepliesToCommentID(t *testing.T) {
	p := &fakeProvider{reply: "Thanks! Sent you a message."}
	d := &fakeDeliverer{}
	g := New(Config{Provider: p, Deliverer: d, Interactions: &fakeInteractions{}})

	in := bus.Interaction{Kind: bus.KindComment, CounterpartyID: "user-3", ExternalID: "post_1_c9", RawText: "Price?"}
	id, err := g.Process(context.Background(), in, page)
	require.NoError(t, err)
	assert.Equal(t, "c.2", id)
	require.Len(t, d.sent, 1)
	assert.Equal(t, "comment", d.sent[0].kind)
	assert.Equal(t, "post_1_c9", d.sent[0].target)
	assert.Contains(t, p.calls[0].Messages[1].Content, "public reply")
}

func TestProcessFailures(t *testing.T) {
	in := bus.Interaction{Kind: bus.KindMessage, CounterpartyID: "u", RawText: "hi"}

	t.Run("ai error is not retried", func(t *testing.T) {
		p := &fakeProvider{err: errors.New("upstream 503")}
		d := &fakeDeliverer{}
		_, err := New(Config{Provider: p, Deliverer: d}).Process(context.Background(), in, page)
		require.Error(t, err)
		assert.Len(t, p.calls, 1)
		assert.Empty(t, d.sent)
	})

	t.Run("empty completion", func(t *testing.T) {
		p := &fakeProvider{reply: " \n "}
		d := &fakeDeliverer{}
		_, err := New(Config{Provider: p, Deliverer: d}).Process(context.Background(), in, page)
		assert.ErrorIs(t, err, providers.ErrEmptyCompletion)
		assert.Empty(t, d.sent)
	})

	t.Run("delivery error", func(t *testing.T) {
		boom := errors.New("token expired")
		st := &fakeInteractions{}
		_, err := New(Config{Provider: &fakeProvider{reply: "ok"}, Deliverer: &fakeDeliverer{err: boom}, Interactions: st}).
			Process(context.Background(), in, page)
		assert.ErrorIs(t, err, boom)
		assert.Empty(t, st.recs)
	})

	t.Run("persist error fails the task", func(t *testing.T) {
		boom := errors.New("db down")
		d := &fakeDeliverer{}
		_, err := New(Config{Provider: &fakeProvider{reply: "ok"}, Deliverer: d, Interactions: &fakeInteractions{err: boom}}).
			Process(context.Background(), in, page)
		assert.ErrorIs(t, err, boom)
		assert.Len(t, d.sent, 1)
	})
}
