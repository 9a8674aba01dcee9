package store

import (
	"time"

	"github.com/google/uuid"
)

// GenNewID returns a time-ordered UUID v7.
func GenNewID() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

// PageSettings is the per-page provisioning record. Read-only to the pipeline.
type PageSettings struct {
	PageID      string `json:"page_id"`
	AccessToken string `json:"-"`
	AdminID     string `json:"admin_id"`
	Enabled     bool   `json:"enabled"`
}

// Strategy statuses and types.
const (
	StrategyActive = "active"
	StrategyPaused = "paused"

	StrategyOrganic = "organic"
	StrategyPaid    = "paid"
)

// Strategy is a scheduled content plan owned by an admin.
type Strategy struct {
	ID        uuid.UUID `json:"id"`
	AdminID   string    `json:"admin_id"`
	Name      string    `json:"name"`
	Theme     string    `json:"theme,omitempty"`
	Status    string    `json:"status"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`

	// Posts holds the strategy's pending posts when loaded by a scan.
	Posts []Post `json:"posts,omitempty"`
	// LastPostedAt is the most recent PostedTime across the strategy's posts.
	LastPostedAt *time.Time `json:"last_posted_at,omitempty"`
}

// Post statuses.
const (
	PostPending = "pending"
	PostPosted  = "posted"
)

// Post is one scheduled unit of content.
type Post struct {
	ID            uuid.UUID  `json:"id"`
	StrategyID    uuid.UUID  `json:"strategy_id"`
	Content       string     `json:"content"`
	ImageURL      string     `json:"image_url,omitempty"`
	Status        string     `json:"status"`
	ScheduledTime time.Time  `json:"scheduled_time"`
	PostedTime    *time.Time `json:"posted_time,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Alert severities and statuses.
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"

	AlertActive   = "active"
	AlertResolved = "resolved"
)

// Alert is a deduplicated notification. At most one active alert exists per
// (StrategyID, Message).
type Alert struct {
	ID         uuid.UUID `json:"id"`
	StrategyID uuid.UUID `json:"strategy_id"`
	AdminID    string    `json:"admin_id"`
	Severity   string    `json:"severity"`
	Message    string    `json:"message"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

// Log event types.
const (
	EventCheck  = "check"
	EventFix    = "fix"
	EventAlert  = "alert"
	EventUpdate = "update"
)

// LogEntry is an append-only audit record.
type LogEntry struct {
	ID         uuid.UUID `json:"id"`
	StrategyID uuid.UUID `json:"strategy_id"`
	AdminID    string    `json:"admin_id"`
	EventType  string    `json:"event_type"`
	Message    string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
}

// InteractionRecord is persisted after a reply was delivered.
type InteractionRecord struct {
	ID             uuid.UUID `json:"id"`
	AdminID        string    `json:"admin_id"`
	PageID         string    `json:"page_id"`
	ExternalID     string    `json:"external_id"`
	Kind           string    `json:"kind"`
	CounterpartyID string    `json:"counterparty_id"`
	InboundText    string    `json:"inbound_text"`
	ReplyText      string    `json:"reply_text"`
	ReplyID        string    `json:"reply_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
