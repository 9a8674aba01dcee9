package pg

import (
	"context"
	"database/sql"
	"errors"

	"github.com/nextlevelbuilder/socialpilot/internal/store"
)

// PGPageStore implements store.PageSettingsStore backed by Postgres.
type PGPageStore struct {
	db *sql.DB
}

func NewPGPageStore(db *sql.DB) *PGPageStore {
	return &PGPageStore{db: db}
}

func (s *PGPageStore) GetPageSettings(ctx context.Context, pageID string) (*store.PageSettings, error) {
	var ps store.PageSettings
	err := s.db.QueryRowContext(ctx,
		`SELECT page_id, access_token, admin_id, enabled FROM page_settings WHERE page_id = $1`, pageID,
	).Scan(&ps.PageID, &ps.AccessToken, &ps.AdminID, &ps.Enabled)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ps, nil
}
