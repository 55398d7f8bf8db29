package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/portalakashico/portal-backend/internal/fulfillment"
	"github.com/portalakashico/portal-backend/pkg/enums"
)

const (
	defaultRecentTTL      = time.Hour
	defaultRecentCapacity = 256
)

type recentKey struct {
	provider enums.PaymentProvider
	id       string
}

// recentEntry starts in flight and settles once with a result or an error.
// done is closed when it settles or is abandoned.
type recentEntry struct {
	done      chan struct{}
	settled   bool
	abandoned bool
	result    fulfillment.Result
	err       error
	expires   time.Time
}

// recentResults tracks readings fulfilled from provider events until the
// buyer's success page asks for them. Each settled entry is handed out once.
type recentResults struct {
	mu       sync.Mutex
	ttl      time.Duration
	capacity int
	entries  map[recentKey]*recentEntry
	now      func() time.Time
}

func newRecentResults(ttl time.Duration, capacity int) *recentResults {
	if ttl <= 0 {
		ttl = defaultRecentTTL
	}
	return &recentResults{
		ttl:      ttl,
		capacity: capacity,
		entries:  make(map[recentKey]*recentEntry),
		now:      time.Now,
	}
}

// begin marks id in flight. It reports false when id is already in flight or
// holds a result nobody collected yet.
func (r *recentResults) begin(provider enums.PaymentProvider, id string) (*recentEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.evictExpired(now)
	key := recentKey{provider: provider, id: id}
	if _, exists := r.entries[key]; exists {
		return nil, false
	}
	if r.settledLen() >= r.capacity {
		r.evictOldest()
	}
	entry := &recentEntry{done: make(chan struct{})}
	r.entries[key] = entry
	return entry, true
}

func (r *recentResults) finish(entry *recentEntry, result fulfillment.Result, err error) {
	r.mu.Lock()
	entry.settled = true
	entry.result = result
	entry.err = err
	entry.expires = r.now().Add(r.ttl)
	r.mu.Unlock()
	close(entry.done)
}

// abandon drops an in-flight entry whose record was never taken.
func (r *recentResults) abandon(provider enums.PaymentProvider, id string, entry *recentEntry) {
	r.mu.Lock()
	key := recentKey{provider: provider, id: id}
	if r.entries[key] == entry {
		delete(r.entries, key)
	}
	entry.abandoned = true
	r.mu.Unlock()
	close(entry.done)
}

// wait returns the settled outcome for id, blocking while it is in flight.
// found is false when id is unknown, expired, abandoned or already collected.
func (r *recentResults) wait(ctx context.Context, provider enums.PaymentProvider, id string) (result fulfillment.Result, found bool, err error) {
	key := recentKey{provider: provider, id: id}

	r.mu.Lock()
	entry, ok := r.entries[key]
	r.mu.Unlock()
	if !ok {
		return fulfillment.Result{}, false, nil
	}

	select {
	case <-entry.done:
	case <-ctx.Done():
		return fulfillment.Result{}, false, ctx.Err()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if entry.abandoned || r.entries[key] != entry {
		return fulfillment.Result{}, false, nil
	}
	delete(r.entries, key)
	if r.now().After(entry.expires) {
		return fulfillment.Result{}, false, nil
	}
	return entry.result, true, entry.err
}

func (r *recentResults) settledLen() int {
	n := 0
	for _, entry := range r.entries {
		if entry.settled {
			n++
		}
	}
	return n
}

func (r *recentResults) evictExpired(now time.Time) {
	for key, entry := range r.entries {
		if entry.settled && now.After(entry.expires) {
			delete(r.entries, key)
		}
	}
}

func (r *recentResults) evictOldest() {
	var (
		oldestKey recentKey
		oldest    time.Time
		found     bool
	)
	for key, entry := range r.entries {
		if !entry.settled {
			continue
		}
		if !found || entry.expires.Before(oldest) {
			oldestKey, oldest, found = key, entry.expires, true
		}
	}
	if found {
		delete(r.entries, oldestKey)
	}
}
