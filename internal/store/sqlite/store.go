// Package sqlite is the standalone-mode store: a single local database file,
// schema applied on open. Timestamps are stored as unix milliseconds.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/nextlevelbuilder/socialpilot/internal/store"
)

//go:embed schema.sql
var schema string

// Store implements the strategy, post, alert, log and interaction stores.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
// Use ":memory:" for an ephemeral database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer; also keeps ":memory:" on a single connection.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA foreign_keys=ON",
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=10000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Stores exposes s through the store container. Pages is left nil; standalone
// page settings come from config.
func (s *Store) Stores() *store.Stores {
	return &store.Stores{
		Interactions: s,
		Strategies:   s,
		Posts:        s,
		Alerts:       s,
		Logs:         s,
		Close:        s.Close,
	}
}

func (s *Store) Close() error { return s.db.Close() }

// DB returns the underlying pool.
func (s *Store) DB() *sql.DB { return s.db }

func toMillis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func (s *Store) CreateInteraction(ctx context.Context, rec *store.InteractionRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = store.GenNewID()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO interactions (id, admin_id, page_id, external_id, kind, counterparty_id, inbound_text, reply_text, reply_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID.String(), rec.AdminID, rec.PageID, rec.ExternalID, rec.Kind, rec.CounterpartyID,
		rec.InboundText, rec.ReplyText, rec.ReplyID, toMillis(rec.CreatedAt),
	)
	return err
}

// CreateStrategy inserts a strategy. Used for seeding and tests.
func (s *Store) CreateStrategy(ctx context.Context, st *store.Strategy) error {
	if st.ID == uuid.Nil {
		st.ID = store.GenNewID()
	}
	if st.CreatedAt.IsZero() {
		st.CreatedAt = time.Now()
	}
	if st.Status == "" {
		st.Status = store.StrategyActive
	}
	if st.Type == "" {
		st.Type = store.StrategyOrganic
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO strategies (id, admin_id, name, theme, status, type, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		st.ID.String(), st.AdminID, st.Name, st.Theme, st.Status, st.Type, toMillis(st.CreatedAt))
	return err
}

func (s *Store) ListActiveStrategies(ctx context.Context) ([]store.Strategy, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.id, s.admin_id, s.name, s.theme, s.status, s.type, s.created_at,
		 (SELECT MAX(p.posted_time) FROM posts p WHERE p.strategy_id = s.id AND p.status = 'posted')
		 FROM strategies s WHERE s.status = 'active' ORDER BY s.created_at`)
	if err != nil {
		return nil, err
	}
	var out []store.Strategy
	index := make(map[uuid.UUID]int)
	for rows.Next() {
		var st store.Strategy
		var created int64
		var last sql.NullInt64
		if err := rows.Scan(&st.ID, &st.AdminID, &st.Name, &st.Theme, &st.Status, &st.Type, &created, &last); err != nil {
			rows.Close()
			return nil, err
		}
		st.CreatedAt = fromMillis(created)
		if last.Valid {
			t := fromMillis(last.Int64)
			st.LastPostedAt = &t
		}
		index[st.ID] = len(out)
		out = append(out, st)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	// The pool has a single connection, so the first result set must be
	// closed before this query runs.
	prows, err := s.db.QueryContext(ctx,
		`SELECT p.id, p.strategy_id, p.content, p.image_url, p.status, p.scheduled_time, p.posted_time, p.created_at, p.updated_at
		 FROM posts p JOIN strategies s ON s.id = p.strategy_id
		 WHERE p.status = 'pending' AND s.status = 'active'
		 ORDER BY p.scheduled_time`)
	if err != nil {
		return nil, fmt.Errorf("load pending posts: %w", err)
	}
	defer prows.Close()
	for prows.Next() {
		var p store.Post
		var sched, created, updated int64
		var posted sql.NullInt64
		if err := prows.Scan(&p.ID, &p.StrategyID, &p.Content, &p.ImageURL, &p.Status, &sched, &posted, &created, &updated); err != nil {
			return nil, err
		}
		p.ScheduledTime = fromMillis(sched)
		p.CreatedAt = fromMillis(created)
		p.UpdatedAt = fromMillis(updated)
		if posted.Valid {
			t := fromMillis(posted.Int64)
			p.PostedTime = &t
		}
		if i, ok := index[p.StrategyID]; ok {
			out[i].Posts = append(out[i].Posts, p)
		}
	}
	return out, prows.Err()
}

func (s *Store) CreatePost(ctx context.Context, p *store.Post) error {
	if p.ID == uuid.Nil {
		p.ID = store.GenNewID()
	}
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.Status == "" {
		p.Status = store.PostPending
	}
	var posted sql.NullInt64
	if p.PostedTime != nil {
		posted = sql.NullInt64{Int64: toMillis(*p.PostedTime), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO posts (id, strategy_id, content, image_url, status, scheduled_time, posted_time, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID.String(), p.StrategyID.String(), p.Content, p.ImageURL, p.Status,
		toMillis(p.ScheduledTime), posted, toMillis(now), toMillis(now))
	return err
}

func (s *Store) UpdatePostContent(ctx context.Context, id uuid.UUID, content string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE posts SET content = ?, updated_at = ? WHERE id = ?`, content, toMillis(time.Now()), id.String())
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

func (s *Store) CreateAlertIfAbsent(ctx context.Context, a *store.Alert) (bool, error) {
	if a.ID == uuid.Nil {
		a.ID = store.GenNewID()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	a.Status = store.AlertActive

	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO alerts (id, strategy_id, admin_id, severity, message, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID.String(), a.StrategyID.String(), a.AdminID, a.Severity, a.Message, a.Status, toMillis(a.CreatedAt))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *Store) ListActiveAlerts(ctx context.Context, strategyID uuid.UUID) ([]store.Alert, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, strategy_id, admin_id, severity, message, status, created_at
		 FROM alerts WHERE strategy_id = ? AND status = 'active' ORDER BY created_at`, strategyID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Alert
	for rows.Next() {
		var a store.Alert
		var created int64
		if err := rows.Scan(&a.ID, &a.StrategyID, &a.AdminID, &a.Severity, &a.Message, &a.Status, &created); err != nil {
			return nil, err
		}
		a.CreatedAt = fromMillis(created)
		out = append(out, a)
	}
	return out, rows.Err()
}

// ResolveAlert marks an alert resolved, allowing the same message to be raised again.
func (s *Store) ResolveAlert(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `UPDATE alerts SET status = 'resolved' WHERE id = ?`, id.String())
	return err
}

func (s *Store) AppendLog(ctx context.Context, e *store.LogEntry) error {
	if e.ID == uuid.Nil {
		e.ID = store.GenNewID()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO strategy_logs (id, strategy_id, admin_id, event_type, message, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID.String(), e.StrategyID.String(), e.AdminID, e.EventType, e.Message, toMillis(e.Timestamp))
	return err
}

// ListLogs returns the audit trail for a strategy, oldest first.
func (s *Store) ListLogs(ctx context.Context, strategyID uuid.UUID) ([]store.LogEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, strategy_id, admin_id, event_type, message, created_at
		 FROM strategy_logs WHERE strategy_id = ? ORDER BY created_at, rowid`, strategyID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.LogEntry
	for rows.Next() {
		var e store.LogEntry
		var ts int64
		if err := rows.Scan(&e.ID, &e.StrategyID, &e.AdminID, &e.EventType, &e.Message, &ts); err != nil {
			return nil, err
		}
		e.Timestamp = fromMillis(ts)
		out = append(out, e)
	}
	return out, rows.Err()
}
