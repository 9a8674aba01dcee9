// Package dedup tracks recently seen interaction fingerprints so that
// redelivered webhook events are processed at most once per retention window.
package dedup

import (
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/nextlevelbuilder/socialpilot/internal/bus"
)

const (
	// DefaultTTL covers the platform's redelivery window with margin.
	DefaultTTL = 10 * time.Minute

	// DefaultCapacity bounds memory; the least recently inserted entries are evicted first.
	DefaultCapacity = 100_000
)

// Ledger is a bounded, time-windowed set of fingerprints. Safe for concurrent use.
type Ledger struct {
	cache *ttlcache.Cache[bus.Fingerprint, struct{}]
}

// New creates a ledger. Non-positive ttl or capacity fall back to the defaults.
func New(ttl time.Duration, capacity uint64) *Ledger {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if capacity == 0 {
		capacity = DefaultCapacity
	}
	return &Ledger{
		cache: ttlcache.New(
			ttlcache.WithTTL[bus.Fingerprint, struct{}](ttl),
			ttlcache.WithCapacity[bus.Fingerprint, struct{}](capacity),
			// TTL counts from first sight; repeated redeliveries must not extend it forever.
			ttlcache.WithDisableTouchOnHit[bus.Fingerprint, struct{}](),
		),
	}
}

// Start runs the expiry janitor until Stop is called. Blocks; run it in a goroutine.
func (l *Ledger) Start() { l.cache.Start() }

// Stop halts the janitor started by Start.
func (l *Ledger) Stop() { l.cache.Stop() }

// Seen reports whether fp was recorded within the retention window.
func (l *Ledger) Seen(fp bus.Fingerprint) bool {
	return l.cache.Has(fp)
}

// Record inserts fp, restarting its retention window.
func (l *Ledger) Record(fp bus.Fingerprint) {
	l.cache.Set(fp, struct{}{}, ttlcache.DefaultTTL)
}

// CheckAndRecord atomically records fp and reports whether this was its first sighting.
// Concurrent callers with the same fingerprint observe exactly one true.
func (l *Ledger) CheckAndRecord(fp bus.Fingerprint) bool {
	_, found := l.cache.GetOrSet(fp, struct{}{})
	return !found
}

// Len returns the number of tracked fingerprints (including not-yet-reaped expired ones).
func (l *Ledger) Len() int { return l.cache.Len() }
