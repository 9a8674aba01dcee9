package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// PageSettingsStore resolves provisioning for a page id.
type PageSettingsStore interface {
	GetPageSettings(ctx context.Context, pageID string) (*PageSettings, error)
}

// InteractionStore persists handled interactions.
type InteractionStore interface {
	CreateInteraction(ctx context.Context, rec *InteractionRecord) error
}

// StrategyStore lists strategies for the health monitor.
type StrategyStore interface {
	// ListActiveStrategies returns active strategies with pending posts and
	// LastPostedAt populated.
	ListActiveStrategies(ctx context.Context) ([]Strategy, error)
}

// PostStore manages scheduled posts.
type PostStore interface {
	CreatePost(ctx context.Context, p *Post) error
	UpdatePostContent(ctx context.Context, id uuid.UUID, content string) error
}

// AlertStore persists alerts.
type AlertStore interface {
	// CreateAlertIfAbsent inserts a when no active alert with the same
	// strategy and message exists. It reports whether a row was inserted.
	CreateAlertIfAbsent(ctx context.Context, a *Alert) (bool, error)
	ListActiveAlerts(ctx context.Context, strategyID uuid.UUID) ([]Alert, error)
}

// LogStore appends audit entries.
type LogStore interface {
	AppendLog(ctx context.Context, e *LogEntry) error
}

// Stores is the top-level container for all storage backends.
type Stores struct {
	Pages        PageSettingsStore
	Interactions InteractionStore
	Strategies   StrategyStore
	Posts        PostStore
	Alerts       AlertStore
	Logs         LogStore

	// Close releases the underlying connection pool.
	Close func() error
}
