package pg

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/socialpilot/internal/store"
)

// PGAlertStore implements store.AlertStore backed by Postgres.
// Uniqueness of active alerts is enforced by the alerts_active_uniq index.
type PGAlertStore struct {
	db *sql.DB
}

func NewPGAlertStore(db *sql.DB) *PGAlertStore {
	return &PGAlertStore{db: db}
}

func (s *PGAlertStore) CreateAlertIfAbsent(ctx context.Context, a *store.Alert) (bool, error) {
	if a.ID == uuid.Nil {
		a.ID = store.GenNewID()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	a.Status = store.AlertActive

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO alerts (id, strategy_id, admin_id, severity, message, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (strategy_id, message) WHERE status = 'active' DO NOTHING`,
		a.ID, a.StrategyID, a.AdminID, a.Severity, a.Message, a.Status, a.CreatedAt,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *PGAlertStore) ListActiveAlerts(ctx context.Context, strategyID uuid.UUID) ([]store.Alert, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, strategy_id, admin_id, severity, message, status, created_at
		 FROM alerts WHERE strategy_id = $1 AND status = 'active'
		 ORDER BY created_at`, strategyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Alert
	for rows.Next() {
		var a store.Alert
		if err := rows.Scan(&a.ID, &a.StrategyID, &a.AdminID, &a.Severity, &a.Message, &a.Status, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
