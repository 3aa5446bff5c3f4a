// Package session provides the SessionStore implementations: a sharded
// in-process map and a Redis-backed store for multi-replica deployments.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/fairyhunter13/ai-interviewer/internal/domain"
)

// DefaultTTL applies when a store is built with a non-positive TTL.
const DefaultTTL = 2 * time.Hour

const shardCount = 32

type entry struct {
	sess    *domain.Session
	expires time.Time
}

type shard struct {
	mu    sync.RWMutex
	items map[string]entry
}

// MemoryStore keeps sessions in process. A session expires TTL after it was created;
// expired entries are hidden from Get immediately and removed by Sweep.
type MemoryStore struct {
	shards   [shardCount]*shard
	ttl      time.Duration
	now      func() time.Time
	onExpire func(id string)
}

// MemoryOption customizes a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock overrides the time source.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *MemoryStore) { m.now = now }
}

// WithExpireHook is called once for every session removed by Sweep.
func WithExpireHook(fn func(id string)) MemoryOption {
	return func(m *MemoryStore) { m.onExpire = fn }
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore(ttl time.Duration, opts ...MemoryOption) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	m := &MemoryStore{ttl: ttl, now: time.Now}
	for i := range m.shards {
		m.shards[i] = &shard{items: map[string]entry{}}
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MemoryStore) shardFor(id string) *shard {
	return m.shards[xxhash.Sum64String(id)%shardCount]
}

// Get implements domain.SessionStore.
func (m *MemoryStore) Get(_ context.Context, id string) (*domain.Session, error) {
	sh := m.shardFor(id)
	sh.mu.RLock()
	e, ok := sh.items[id]
	sh.mu.RUnlock()
	if !ok || !m.now().Before(e.expires) {
		return nil, fmt.Errorf("%w: session %s", domain.ErrNotFound, id)
	}
	return e.sess.Clone(), nil
}

// Put implements domain.SessionStore. Writing a session past its expiry reports ErrNotFound.
func (m *MemoryStore) Put(_ context.Context, s *domain.Session) error {
	if s == nil || s.ID == "" {
		return fmt.Errorf("%w: session id required", domain.ErrInvalidArgument)
	}
	expires := expiry(s, m.ttl, m.now())
	if !m.now().Before(expires) {
		return fmt.Errorf("%w: session %s expired", domain.ErrNotFound, s.ID)
	}
	sh := m.shardFor(s.ID)
	sh.mu.Lock()
	sh.items[s.ID] = entry{sess: s.Clone(), expires: expires}
	sh.mu.Unlock()
	return nil
}

// Delete implements domain.SessionStore. Unknown ids are ignored.
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	sh := m.shardFor(id)
	sh.mu.Lock()
	delete(sh.items, id)
	sh.mu.Unlock()
	return nil
}

// Len returns the number of stored sessions, expired or not.
func (m *MemoryStore) Len() int {
	n := 0
	for _, sh := range m.shards {
		sh.mu.RLock()
		n += len(sh.items)
		sh.mu.RUnlock()
	}
	return n
}

// Sweep removes expired sessions and returns how many were dropped.
func (m *MemoryStore) Sweep() int {
	now := m.now()
	var expired []string
	for _, sh := range m.shards {
		sh.mu.Lock()
		for id, e := range sh.items {
			if !now.Before(e.expires) {
				delete(sh.items, id)
				expired = append(expired, id)
			}
		}
		sh.mu.Unlock()
	}
	if m.onExpire != nil {
		for _, id := range expired {
			m.onExpire(id)
		}
	}
	return len(expired)
}

// Run sweeps every interval until ctx is done. afterSweep, when set, receives
// the live count after each pass.
func (m *MemoryStore) Run(ctx context.Context, interval time.Duration, afterSweep func(live int)) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("session sweeper stopping")
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				slog.Info("expired sessions removed", slog.Int("count", n))
			}
			if afterSweep != nil {
				afterSweep(m.Len())
			}
		}
	}
}

// expiry is CreatedAt+ttl; sessions without a creation time expire ttl from now.
func expiry(s *domain.Session, ttl time.Duration, now time.Time) time.Time {
	base := s.CreatedAt
	if base.IsZero() {
		base = now
	}
	return base.Add(ttl)
}

var _ domain.SessionStore = (*MemoryStore)(nil)
