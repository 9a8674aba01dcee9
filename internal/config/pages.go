package config

import (
	"context"
	"sync"

	"github.com/nextlevelbuilder/socialpilot/internal/store"
)

// PageDirectory serves page settings from config in standalone mode.
// Replace swaps the whole set atomically on reload.
type PageDirectory struct {
	mu    sync.RWMutex
	pages map[string]store.PageSettings
}

func NewPageDirectory(pages []PageConfig) *PageDirectory {
	d := &PageDirectory{}
	d.Replace(pages)
	return d
}

func (d *PageDirectory) Replace(pages []PageConfig) {
	m := make(map[string]store.PageSettings, len(pages))
	for _, p := range pages {
		m[p.PageID] = store.PageSettings{
			PageID:      p.PageID,
			AccessToken: p.AccessToken,
			AdminID:     p.AdminID,
			Enabled:     p.IsEnabled() && p.AccessToken != "",
		}
	}
	d.mu.Lock()
	d.pages = m
	d.mu.Unlock()
}

func (d *PageDirectory) GetPageSettings(_ context.Context, pageID string) (*store.PageSettings, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ps, ok := d.pages[pageID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &ps, nil
}

// Len returns the number of provisioned pages.
func (d *PageDirectory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.pages)
}
