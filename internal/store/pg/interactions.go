package pg

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/socialpilot/internal/store"
)

// PGInteractionStore implements store.InteractionStore backed by Postgres.
type PGInteractionStore struct {
	db *sql.DB
}

func NewPGInteractionStore(db *sql.DB) *PGInteractionStore {
	return &PGInteractionStore{db: db}
}

func (s *PGInteractionStore) CreateInteraction(ctx context.Context, rec *store.InteractionRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = store.GenNewID()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO interactions (id, admin_id, page_id, external_id, kind, counterparty_id, inbound_text, reply_text, reply_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rec.ID, rec.AdminID, rec.PageID, rec.ExternalID, rec.Kind, rec.CounterpartyID,
		rec.InboundText, rec.ReplyText, rec.ReplyID, rec.CreatedAt,
	)
	return err
}
