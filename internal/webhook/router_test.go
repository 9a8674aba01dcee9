package webhook

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextlevelbuilder/socialpilot/internal/bus"
	"github.com/nextlevelbuilder/socialpilot/internal/queue"
	"github.com/nextlevelbuilder/socialpilot/internal/store"
)

type fakeLedger struct {
	mu    sync.Mutex
	seen  map[bus.Fingerprint]bool
	calls int
}

func (l *fakeLedger) CheckAndRecord(fp bus.Fingerprint) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.seen == nil {
		l.seen = make(map[bus.Fingerprint]bool)
	}
	if l.seen[fp] {
		return false
	}
	l.seen[fp] = true
	return true
}

type fakePages map[string]*store.PageSettings

func (p fakePages) GetPageSettings(_ context.Context, id string) (*store.PageSettings, error) {
	if id == "broken" {
		return nil, errors.New("db down")
	}
	ps, ok := p[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return ps, nil
}

type submitted struct {
	fn       queue.TaskFunc[string]
	priority int
}

type fakeSubmitter struct {
	tasks []submitted
}

func (s *fakeSubmitter) Submit(fn queue.TaskFunc[string], priority int) *queue.Future[string] {
	s.tasks = append(s.tasks, submitted{fn, priority})
	return nil
}

type fakeProcessor struct {
	got []bus.Interaction
}

func (p *fakeProcessor) Process(_ context.Context, in bus.Interaction, _ store.PageSettings) (string, error) {
	p.got = append(p.got, in)
	return "reply-id", nil
}

type countingRecorder struct {
	counts map[string]int
}

func (c *countingRecorder) ObserveInteraction(kind, outcome string) {
	if c.counts == nil {
		c.counts = make(map[string]int)
	}
	c.counts[kind+"/"+outcome]++
}

type harness struct {
	router *Router
	ledger *fakeLedger
	queue  *fakeSubmitter
	proc   *fakeProcessor
	rec    *countingRecorder
}

func newHarness() *harness {
	h := &harness{
		ledger: &fakeLedger{},
		queue:  &fakeSubmitter{},
		proc:   &fakeProcessor{},
		rec:    &countingRecorder{},
	}
	pages := fakePages{
		"PAGE":     {PageID: "PAGE", AccessToken: "tok", AdminID: "admin", Enabled: true},
		"DISABLED": {PageID: "DISABLED", Enabled: false},
	}
	h.router = NewRouter(h.ledger, pages, h.queue, h.proc, h.rec)
	return h
}

// runAll executes every submitted task in submission order.
func (h *harness) runAll(t *testing.T) {
	t.Helper()
	for _, task := range h.queue.tasks {
		_, err := task.fn(context.Background())
		require.NoError(t, err)
	}
}

const messageBody = `{"object":"page","entry":[{"id":"PAGE","time":1700000000000,"messaging":[
 {"sender":{"id":"USER"},"recipient":{"id":"PAGE"},"timestamp":1700000000000,"message":{"mid":"m_1","text":"Is the loft available?"}}
]}]}`

func TestRouteMessage(t *testing.T) {
	h := newHarness()
	h.router.Handle(context.Background(), []byte(messageBody))

	require.Len(t, h.queue.tasks, 1)
	assert.Equal(t, PriorityMessage, h.queue.tasks[0].priority)

	h.runAll(t)
	require.Len(t, h.proc.got, 1)
	in := h.proc.got[0]
	assert.Equal(t, bus.KindMessage, in.Kind)
	assert.Equal(t, "PAGE", in.SourceChannelID)
	assert.Equal(t, "USER", in.CounterpartyID)
	assert.Equal(t, "m_1", in.ExternalID)
	assert.Equal(t, "Is the loft available?", in.RawText)
	assert.Equal(t, 1, h.rec.counts["message/enqueued"])
}

func TestEchoNeverReachesLedgerOrQueue(t *testing.T) {
	h := newHarness()
	body := `{"object":"page","entry":[{"id":"PAGE","messaging":[
	 {"sender":{"id":"PAGE"},"recipient":{"id":"USER"},"message":{"mid":"m_2","text":"Thanks for reaching out","is_echo":true}}
	]}]}`
	h.router.Handle(context.Background(), []byte(body))

	assert.Equal(t, 0, h.ledger.calls)
	assert.Empty(t, h.queue.tasks)
	assert.Equal(t, 1, h.rec.counts["message/echo"])
}

func TestDuplicateDeliveryEnqueuesOnce(t *testing.T) {
	h := newHarness()
	h.router.Handle(context.Background(), []byte(messageBody))
	h.router.Handle(context.Background(), []byte(messageBody))

	assert.Len(t, h.queue.tasks, 1)
	assert.Equal(t, 1, h.rec.counts["message/duplicate"])
}

func TestRouteComment(t *testing.T) {
	tests := []struct {
		name      string
		change    string
		wantTasks int
	}{
		{"new comment", `{"field":"feed","value":{"item":"comment","verb":"add","comment_id":"P_C1","post_id":"P","message":"Price?","from":{"id":"USER"}}}`, 1},
		{"edited comment", `{"field":"feed","value":{"item":"comment","verb":"edited","comment_id":"P_C1","message":"Price?","from":{"id":"USER"}}}`, 0},
		{"reaction", `{"field":"feed","value":{"item":"reaction","verb":"add","from":{"id":"USER"}}}`, 0},
		{"page's own comment", `{"field":"feed","value":{"item":"comment","verb":"add","comment_id":"P_C2","message":"Hi","from":{"id":"PAGE"}}}`, 0},
		{"status field not handled", `{"field":"status","value":{"item":"comment","verb":"add","comment_id":"P_C3","message":"Hi","from":{"id":"USER"}}}`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			body := `{"object":"page","entry":[{"id":"PAGE","changes":[` + tt.change + `]}]}`
			h.router.Handle(context.Background(), []byte(body))

			require.Len(t, h.queue.tasks, tt.wantTasks)
			if tt.wantTasks == 1 {
				assert.Equal(t, PriorityComment, h.queue.tasks[0].priority)
				h.runAll(t)
				assert.Equal(t, bus.KindComment, h.proc.got[0].Kind)
				assert.Equal(t, "P_C1", h.proc.got[0].ExternalID)
				assert.Equal(t, "P", h.proc.got[0].PostID)
			}
		})
	}
}

func TestUnprovisionedPagesAreSkipped(t *testing.T) {
	for _, page := range []string{"UNKNOWN", "DISABLED", "broken"} {
		t.Run(page, func(t *testing.T) {
			h := newHarness()
			body := `{"object":"page","entry":[{"id":"` + page + `","messaging":[
			 {"sender":{"id":"USER"},"message":{"mid":"m","text":"hello"}}]}]}`
			h.router.Handle(context.Background(), []byte(body))
			assert.Empty(t, h.queue.tasks)
			assert.Equal(t, 1, h.rec.counts["message/unprovisioned"])
		})
	}
}

func TestMalformedPartsDoNotAffectSiblings(t *testing.T) {
	h := newHarness()
	body := `{"object":"page","entry":[
	 "not an entry",
	 {"id":"PAGE","messaging":[
	   {"sender":"bad"},
	   {"sender":{"id":"USER"},"message":{"mid":"m_3","text":"still here"}}
	 ],"changes":[{"field":"feed","value":"bad"}]}
	]}`
	h.router.Handle(context.Background(), []byte(body))

	require.Len(t, h.queue.tasks, 1)
	h.runAll(t)
	assert.Equal(t, "still here", h.proc.got[0].RawText)
}

func TestIgnoredBodies(t *testing.T) {
	for _, body := range []string{
		`not json`,
		`{"object":"instagram","entry":[{"id":"PAGE","messaging":[{"sender":{"id":"U"},"message":{"mid":"m","text":"x"}}]}]}`,
		`{"object":"page","entry":[{"id":"PAGE","messaging":[{"sender":{"id":"U"},"delivery":{"mids":["m"]}}]}]}`,
	} {
		h := newHarness()
		h.router.Handle(context.Background(), []byte(body))
		assert.Empty(t, h.queue.tasks, body)
	}
}
