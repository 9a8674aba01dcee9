package pg

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/socialpilot/internal/store"
)

// PGLogStore implements store.LogStore backed by Postgres.
type PGLogStore struct {
	db *sql.DB
}

func NewPGLogStore(db *sql.DB) *PGLogStore {
	return &PGLogStore{db: db}
}

func (s *PGLogStore) AppendLog(ctx context.Context, e *store.LogEntry) error {
	if e.ID == uuid.Nil {
		e.ID = store.GenNewID()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO strategy_logs (id, strategy_id, admin_id, event_type, message, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.StrategyID, e.AdminID, e.EventType, e.Message, e.Timestamp,
	)
	return err
}
