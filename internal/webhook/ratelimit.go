package webhook

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// maxTrackedSources caps the per-source table so rotating addresses cannot
// exhaust memory.
const maxTrackedSources = 4096

// RejectLimiter budgets rejected deliveries (bad signature, oversized body)
// per source address. Verified deliveries never reach it, so the platform's
// own senders are not throttled. Safe for concurrent use.
type RejectLimiter struct {
	mu      sync.Mutex
	sources map[string]*rejectSource
	every   rate.Limit
	burst   int
	idle    time.Duration
}

type rejectSource struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// NewRejectLimiter tolerates perMinute rejections per source, refilled
// evenly over the minute.
func NewRejectLimiter(perMinute int) *RejectLimiter {
	if perMinute <= 0 {
		return nil
	}
	return &RejectLimiter{
		sources: make(map[string]*rejectSource),
		every:   rate.Every(time.Minute / time.Duration(perMinute)),
		burst:   perMinute,
		idle:    time.Minute,
	}
}

// Reject records a rejected request from key and reports whether the source
// has used up its budget. A nil limiter never throttles.
func (l *RejectLimiter) Reject(key string) bool {
	if l == nil {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	src, ok := l.sources[key]
	if !ok {
		l.evict(now)
		src = &rejectSource{lim: rate.NewLimiter(l.every, l.burst)}
		l.sources[key] = src
	}
	src.lastSeen = now
	return !src.lim.AllowN(now, 1)
}

// Len reports how many sources are being tracked.
func (l *RejectLimiter) Len() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.sources)
}

func (l *RejectLimiter) evict(now time.Time) {
	if len(l.sources) < maxTrackedSources {
		return
	}
	for k, s := range l.sources {
		if now.Sub(s.lastSeen) >= l.idle {
			delete(l.sources, k)
		}
	}
	for k := range l.sources {
		if len(l.sources) < maxTrackedSources {
			break
		}
		delete(l.sources, k)
	}
}
