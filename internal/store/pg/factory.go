package pg

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/nextlevelbuilder/socialpilot/internal/store"
)

// OpenDB opens a pgx-backed *sql.DB and verifies connectivity.
func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// NewStoresFromDB wires every store onto an existing pool.
func NewStoresFromDB(db *sql.DB) *store.Stores {
	return &store.Stores{
		Pages:        NewPGPageStore(db),
		Interactions: NewPGInteractionStore(db),
		Strategies:   NewPGStrategyStore(db),
		Posts:        NewPGPostStore(db),
		Alerts:       NewPGAlertStore(db),
		Logs:         NewPGLogStore(db),
		Close:        db.Close,
	}
}
