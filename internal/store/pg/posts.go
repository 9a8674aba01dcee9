package pg

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/socialpilot/internal/store"
)

// PGPostStore implements store.PostStore backed by Postgres.
type PGPostStore struct {
	db *sql.DB
}

func NewPGPostStore(db *sql.DB) *PGPostStore {
	return &PGPostStore{db: db}
}

func (s *PGPostStore) CreatePost(ctx context.Context, p *store.Post) error {
	if p.ID == uuid.Nil {
		p.ID = store.GenNewID()
	}
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.Status == "" {
		p.Status = store.PostPending
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO posts (id, strategy_id, content, image_url, status, scheduled_time, posted_time, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.StrategyID, p.Content, nullString(p.ImageURL), p.Status,
		p.ScheduledTime, p.PostedTime, now, now,
	)
	return err
}

func (s *PGPostStore) UpdatePostContent(ctx context.Context, id uuid.UUID, content string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE posts SET content = $1, updated_at = $2 WHERE id = $3`, content, time.Now(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
