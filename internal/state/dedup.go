package state

import (
	"context"
	"sync"
	"time"
)

// Fingerprint derives the idempotency key for a user message delivery.
// It deliberately keys on (user, text) only, matching the upstream webhook's
// coarse redelivery semantics.
func Fingerprint(userID, text string) string {
	return userID + "\x00" + text
}

// DedupFilter remembers fingerprints of successfully relayed deliveries for a
// bounded window, absorbing at-least-once webhook redelivery. Entries expire
// after the TTL so a user can legitimately repeat the same text later.
type DedupFilter struct {
	mu   sync.Mutex
	seen map[string]time.Time
	ttl  time.Duration
	now  func() time.Time // overridable in tests
}

func NewDedupFilter(ttl time.Duration) *DedupFilter {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &DedupFilter{
		seen: make(map[string]time.Time),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Seen reports whether the fingerprint was marked within the TTL window.
// Expired entries are dropped on the way.
func (f *DedupFilter) Seen(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	at, ok := f.seen[key]
	if !ok {
		return false
	}
	if f.now().Sub(at) > f.ttl {
		delete(f.seen, key)
		return false
	}
	return true
}

// Mark records the fingerprint as processed. Only successful relays are
// marked; a failed relay stays retryable.
func (f *DedupFilter) Mark(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen[key] = f.now()
}

// Sweep removes expired fingerprints and returns how many remain.
func (f *DedupFilter) Sweep() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	cutoff := f.now().Add(-f.ttl)
	for key, at := range f.seen {
		if at.Before(cutoff) {
			delete(f.seen, key)
		}
	}
	return len(f.seen)
}

// Run sweeps periodically until the context is canceled, keeping memory
// bounded in a long-running process.
func (f *DedupFilter) Run(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.Sweep()
		}
	}
}

func (f *DedupFilter) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.seen)
}
