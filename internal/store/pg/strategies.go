package pg

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/nextlevelbuilder/socialpilot/internal/store"
)

// PGStrategyStore implements store.StrategyStore backed by Postgres.
type PGStrategyStore struct {
	db *sql.DB
}

func NewPGStrategyStore(db *sql.DB) *PGStrategyStore {
	return &PGStrategyStore{db: db}
}

const postSelectCols = `id, strategy_id, content, COALESCE(image_url, ''), status, scheduled_time, posted_time, created_at, updated_at`

func (s *PGStrategyStore) ListActiveStrategies(ctx context.Context) ([]store.Strategy, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.id, s.admin_id, s.name, COALESCE(s.theme, ''), s.status, s.type, s.created_at,
		 (SELECT MAX(p.posted_time) FROM posts p WHERE p.strategy_id = s.id AND p.status = 'posted')
		 FROM strategies s
		 WHERE s.status = 'active'
		 ORDER BY s.created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Strategy
	index := make(map[uuid.UUID]int)
	for rows.Next() {
		var st store.Strategy
		var last sql.NullTime
		if err := rows.Scan(&st.ID, &st.AdminID, &st.Name, &st.Theme, &st.Status, &st.Type, &st.CreatedAt, &last); err != nil {
			return nil, err
		}
		if last.Valid {
			t := last.Time
			st.LastPostedAt = &t
		}
		index[st.ID] = len(out)
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	ids := make([]string, 0, len(out))
	for _, st := range out {
		ids = append(ids, st.ID.String())
	}
	posts, err := s.pendingPosts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load pending posts: %w", err)
	}
	for _, p := range posts {
		if i, ok := index[p.StrategyID]; ok {
			out[i].Posts = append(out[i].Posts, p)
		}
	}
	return out, nil
}

func (s *PGStrategyStore) pendingPosts(ctx context.Context, strategyIDs []string) ([]store.Post, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+postSelectCols+` FROM posts
		 WHERE status = 'pending' AND strategy_id = ANY($1::uuid[])
		 ORDER BY scheduled_time`, pq.Array(strategyIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []store.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func scanPost(row interface{ Scan(...any) error }) (store.Post, error) {
	var p store.Post
	var posted sql.NullTime
	if err := row.Scan(&p.ID, &p.StrategyID, &p.Content, &p.ImageURL, &p.Status,
		&p.ScheduledTime, &posted, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return p, err
	}
	if posted.Valid {
		t := posted.Time
		p.PostedTime = &t
	}
	return p, nil
}
