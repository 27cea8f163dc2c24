// Package querycache is a client-side read cache keyed by logical resource
// names. Reads within the staleness window are served from memory, concurrent
// reads for the same key share one in-flight fetch, and entries can be
// invalidated, force-refetched, or patched in place for optimistic updates.
package querycache

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultStaleness is the freshness window for list resources.
	DefaultStaleness = 30 * time.Second

	defaultCapacity = 256
)

// Fetcher loads the authoritative value for a key.
type Fetcher func(ctx context.Context) (interface{}, error)

// Updater transforms a cached value in place for optimistic writes.
type Updater func(current interface{}) interface{}

type entry struct {
	value     interface{}
	fetchedAt time.Time
	stale     bool
}

// Store is safe for concurrent use.
type Store struct {
	mu        sync.Mutex
	cache     *lru.Cache[string, *entry]
	group     singleflight.Group
	inflight  map[string]context.CancelFunc
	gens      map[string]uint64
	staleness time.Duration
	logger    zerolog.Logger

	now func() time.Time
}

type Option func(*Store)

// WithStaleness overrides the freshness window.
func WithStaleness(d time.Duration) Option {
	return func(s *Store) { s.staleness = d }
}

// WithLogger attaches a logger for invalidation and rollback diagnostics.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

func NewStore(opts ...Option) (*Store, error) {
	cache, err := lru.New[string, *entry](defaultCapacity)
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}
	s := &Store{
		cache:     cache,
		inflight:  make(map[string]context.CancelFunc),
		gens:      make(map[string]uint64),
		staleness: DefaultStaleness,
		logger:    zerolog.Nop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Key builds a cache key from a resource path and optional parameters,
// e.g. Key("sessions", "client", "42") -> "sessions:client:42".
func Key(resource string, params ...string) string {
	key := resource
	for _, p := range params {
		key += ":" + p
	}
	return key
}

// Get returns the cached value when fresh, otherwise fetches. Concurrent
// callers for the same key share a single fetch.
func (s *Store) Get(ctx context.Context, key string, fetch Fetcher) (interface{}, error) {
	s.mu.Lock()
	if e, ok := s.cache.Get(key); ok && !e.stale && s.now().Sub(e.fetchedAt) < s.staleness {
		value := e.value
		s.mu.Unlock()
		return value, nil
	}
	s.mu.Unlock()

	value, err, _ := s.group.Do(key, func() (interface{}, error) {
		fetchCtx, cancel := context.WithCancel(ctx)
		s.mu.Lock()
		s.inflight[key] = cancel
		gen := s.gens[key]
		s.mu.Unlock()

		defer func() {
			cancel()
			s.mu.Lock()
			delete(s.inflight, key)
			s.mu.Unlock()
		}()

		v, err := fetch(fetchCtx)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		// A write that raced this fetch (optimistic patch, rollback,
		// cancellation) wins over the response, even one that already
		// left the server.
		if s.gens[key] == gen {
			s.cache.Add(key, &entry{value: v, fetchedAt: s.now()})
		}
		s.mu.Unlock()
		return v, nil
	})
	return value, err
}

// Peek returns the cached value without fetching, fresh or not.
func (s *Store) Peek(key string) (interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.cache.Get(key)
	if !ok {
		return nil, false
	}
	return e.value, true
}

// Invalidate marks an entry stale; the next Get refetches.
func (s *Store) Invalidate(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.cache.Get(key); ok {
		e.stale = true
	}
}

// Refetch bypasses the staleness window and fetches immediately, replacing
// the cached value on success.
func (s *Store) Refetch(ctx context.Context, key string, fetch Fetcher) (interface{}, error) {
	s.Invalidate(key)
	return s.Get(ctx, key, fetch)
}

// SetData applies an updater to the cached value. Missing entries are
// ignored: optimistic writes only make sense over an existing snapshot.
func (s *Store) SetData(key string, update Updater) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.cache.Get(key)
	if !ok {
		return
	}
	e.value = update(e.value)
	s.gens[key]++
}

// Snapshot returns the current cached value for later restoration.
func (s *Store) Snapshot(key string) (interface{}, bool) {
	return s.Peek(key)
}

// Restore writes a snapshot back, replacing whatever is cached. Used to roll
// back a failed optimistic update; the entry is marked stale so the next
// read reconciles with the server.
func (s *Store) Restore(key string, snapshot interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Add(key, &entry{value: snapshot, fetchedAt: s.now(), stale: true})
	s.gens[key]++
}

// CancelInflight aborts a pending fetch for the key, if any. Called before an
// optimistic write so a stale in-flight response cannot clobber it. The
// generation bump also discards a response that has already returned but not
// yet been stored.
func (s *Store) CancelInflight(key string) {
	s.mu.Lock()
	cancel, ok := s.inflight[key]
	s.gens[key]++
	s.mu.Unlock()
	if ok {
		cancel()
	}
}

// Purge drops every entry.
func (s *Store) Purge() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Purge()
	s.gens = make(map[string]uint64)
}
