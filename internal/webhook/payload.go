package webhook

import (
	"encoding/json"
	"time"
)

// Envelope is the top-level webhook body. Entries stay raw so one malformed
// entry cannot poison its siblings.
type Envelope struct {
	Object string            `json:"object"`
	Entry  []json.RawMessage `json:"entry"`
}

type rawEntry struct {
	ID        string            `json:"id"`
	Time      int64             `json:"time"`
	Messaging []json.RawMessage `json:"messaging"`
	Changes   []json.RawMessage `json:"changes"`
}

type rawMessaging struct {
	Sender    struct{ ID string } `json:"sender"`
	Recipient struct{ ID string } `json:"recipient"`
	Timestamp int64               `json:"timestamp"`
	Message   *struct {
		MID    string `json:"mid"`
		Text   string `json:"text"`
		IsEcho bool   `json:"is_echo"`
	} `json:"message"`
}

type rawChange struct {
	Field string          `json:"field"`
	Value json.RawMessage `json:"value"`
}

type rawFeedValue struct {
	Item        string `json:"item"`
	Verb        string `json:"verb"`
	CommentID   string `json:"comment_id"`
	PostID      string `json:"post_id"`
	ParentID    string `json:"parent_id"`
	Message     string `json:"message"`
	CreatedTime int64  `json:"created_time"`
	From        struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"from"`
}

// Event is one decoded sub-event of an entry.
type Event interface {
	isEvent()
}

// MessageEvent is a direct message delivered to (or echoed from) the page.
type MessageEvent struct {
	PageID      string
	SenderID    string
	RecipientID string
	MID         string
	Text        string
	IsEcho      bool
	Timestamp   time.Time
}

// FeedChangeEvent is a change on the page feed.
type FeedChangeEvent struct {
	PageID    string
	Item      string
	Verb      string
	CommentID string
	PostID    string
	FromID    string
	Message   string
	Timestamp time.Time
}

// UnknownEvent is any sub-event this service does not act on.
type UnknownEvent struct {
	PageID string
	Kind   string
}

func (MessageEvent) isEvent()    {}
func (FeedChangeEvent) isEvent() {}
func (UnknownEvent) isEvent()    {}

// parseEntry decodes one entry. Malformed sub-events are dropped and counted
// in skipped; only a malformed entry header returns an error.
func parseEntry(raw json.RawMessage) (pageID string, events []Event, skipped int, err error) {
	var e rawEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return "", nil, 0, err
	}

	for _, m := range e.Messaging {
		ev, err := parseMessaging(e.ID, m)
		if err != nil {
			skipped++
			continue
		}
		events = append(events, ev)
	}
	for _, c := range e.Changes {
		ev, err := parseChange(e.ID, c)
		if err != nil {
			skipped++
			continue
		}
		events = append(events, ev)
	}
	return e.ID, events, skipped, nil
}

func parseMessaging(pageID string, raw json.RawMessage) (Event, error) {
	var m rawMessaging
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	if m.Message == nil {
		// delivery/read receipts, postbacks, reactions
		return UnknownEvent{PageID: pageID, Kind: "messaging"}, nil
	}
	return MessageEvent{
		PageID:      pageID,
		SenderID:    m.Sender.ID,
		RecipientID: m.Recipient.ID,
		MID:         m.Message.MID,
		Text:        m.Message.Text,
		IsEcho:      m.Message.IsEcho,
		Timestamp:   fromMillis(m.Timestamp),
	}, nil
}

func parseChange(pageID string, raw json.RawMessage) (Event, error) {
	var c rawChange
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	if c.Field != "feed" {
		return UnknownEvent{PageID: pageID, Kind: "change:" + c.Field}, nil
	}
	var v rawFeedValue
	if err := json.Unmarshal(c.Value, &v); err != nil {
		return nil, err
	}
	return FeedChangeEvent{
		PageID:    pageID,
		Item:      v.Item,
		Verb:      v.Verb,
		CommentID: v.CommentID,
		PostID:    v.PostID,
		FromID:    v.From.ID,
		Message:   v.Message,
		Timestamp: fromSeconds(v.CreatedTime),
	}, nil
}

func fromMillis(ms int64) time.Time {
	if ms <= 0 {
		return time.Now()
	}
	return time.UnixMilli(ms)
}

func fromSeconds(s int64) time.Time {
	if s <= 0 {
		return time.Now()
	}
	return time.Unix(s, 0)
}
