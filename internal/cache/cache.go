// Package cache implements the TTL cache gateway that sits between the
// GitHub fetchers and the network. Entries past their TTL are not deleted:
// they remain usable as a degraded fallback when the upstream API cannot be
// reached.
package cache

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultTTL is the freshness window for cached entries.
const DefaultTTL = 5 * time.Minute

var lookups = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "gitfolio_cache_requests_total",
		Help: "Cache gateway lookups by outcome",
	},
	[]string{"outcome"},
)

// Store is a mutex-guarded key/value cache with a fixed freshness window.
// Entries are immutable once written and replaced wholesale on refresh.
type Store struct {
	mu          sync.RWMutex
	entries     map[string]entry
	ttl         time.Duration
	rateLimited func(error) bool
	now         func() time.Time
}

type entry struct {
	value     any
	fetchedAt time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithRateLimitedCheck sets the predicate that decides whether a producer
// error counts as upstream rate-limiting. Rate-limited failures are the only
// ones allowed to degrade to a synthetic fallback value; everything else
// either serves stale data or propagates.
func WithRateLimitedCheck(fn func(error) bool) Option {
	return func(s *Store) { s.rateLimited = fn }
}

// WithClock overrides the time source. Test hook.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns an empty Store with the given TTL. A ttl of zero means
// DefaultTTL.
func New(ttl time.Duration, opts ...Option) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &Store{
		entries:     make(map[string]entry),
		ttl:         ttl,
		rateLimited: func(error) bool { return false },
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) lookup(key string) (any, bool, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, false, false
	}
	fresh := s.now().Sub(e.fetchedAt) < s.ttl
	return e.value, fresh, true
}

func (s *Store) put(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry{value: value, fetchedAt: s.now()}
}

// Clear drops all entries. Used for forced refresh.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]entry)
}

// Evict removes every entry whose key starts with prefix and reports how many
// were dropped.
func (s *Store) Evict(prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for key := range s.entries {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(s.entries, key)
			n++
		}
	}
	return n
}

// Info describes the current cache contents for diagnostics.
type Info struct {
	Size int      `json:"size"`
	Keys []string `json:"keys"`
}

// Info returns the entry count and the sorted key list.
func (s *Store) Info() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.entries))
	for key := range s.entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return Info{Size: len(s.entries), Keys: keys}
}

// GetOrFetch returns the value for key, invoking producer only when no fresh
// entry exists. On producer failure any existing entry (fresh or stale) is
// served instead; a rate-limited failure with no entry at all degrades to
// fallback. fallback may be nil when no synthetic default makes sense for the
// key's category, in which case rate-limited failures propagate like any
// other error.
func GetOrFetch[T any](ctx context.Context, s *Store, key string, fallback func() T, producer func(context.Context) (T, error)) (T, error) {
	cached, fresh, exists := s.lookup(key)
	if exists {
		if v, ok := cached.(T); ok {
			if fresh {
				lookups.WithLabelValues("hit").Inc()
				return v, nil
			}
		} else {
			// Type mismatch means the key was reused across categories;
			// treat the entry as absent.
			exists = false
		}
	}

	lookups.WithLabelValues("miss").Inc()
	v, err := producer(ctx)
	if err == nil {
		s.put(key, v)
		return v, nil
	}

	if exists {
		lookups.WithLabelValues("stale_fallback").Inc()
		return cached.(T), nil
	}
	if s.rateLimited(err) && fallback != nil {
		lookups.WithLabelValues("synthetic_fallback").Inc()
		return fallback(), nil
	}

	lookups.WithLabelValues("error").Inc()
	var zero T
	return zero, err
}
