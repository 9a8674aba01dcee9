package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nextlevelbuilder/socialpilot/internal/config"
	"github.com/nextlevelbuilder/socialpilot/internal/store"
	"github.com/nextlevelbuilder/socialpilot/internal/store/pg"
	"github.com/nextlevelbuilder/socialpilot/internal/store/sqlite"
	"github.com/nextlevelbuilder/socialpilot/internal/upgrade"
)

// openStores opens the backend selected by the database mode. In standalone
// mode page settings come from the config file and the returned directory is
// non-nil so callers can reload it.
func openStores(cfg *config.Config) (*store.Stores, *config.PageDirectory, error) {
	if cfg.IsManagedMode() {
		db, err := pg.OpenDB(cfg.Database.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		status, err := upgrade.CheckSchema(context.Background(), db)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		if err := status.Err(); err != nil {
			db.Close()
			fmt.Fprint(os.Stderr, upgrade.FormatError(status))
			return nil, nil, err
		}
		slog.Info("store backend", "mode", "managed", "schema", status.CurrentVersion)
		return pg.NewStoresFromDB(db), nil, nil
	}
	if cfg.Database.Mode == "managed" {
		return nil, nil, fmt.Errorf("managed mode requires SOCIALPILOT_POSTGRES_DSN")
	}

	path := config.ExpandHome(cfg.Database.SQLitePath)
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	db, err := sqlite.Open(path)
	if err != nil {
		return nil, nil, err
	}

	pages := config.NewPageDirectory(cfg.PageList())
	stores := db.Stores()
	stores.Pages = pages
	slog.Info("store backend", "mode", "standalone", "path", path, "pages", pages.Len())
	return stores, pages, nil
}
