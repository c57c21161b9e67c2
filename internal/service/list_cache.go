package service

import (
	"context"
	"sync"
	"time"

	"github.com/viccon/sturdyc"
)

// ListCacheStore holds serialized list responses with a per-entry TTL.
// Implementations must be safe for concurrent use.
type ListCacheStore interface {
	Get(ctx context.Context, namespace, key string) ([]byte, bool, error)
	Set(ctx context.Context, namespace, key string, value []byte, ttl time.Duration) error
}

type NoopListCacheStore struct{}

func NewNoopListCacheStore() *NoopListCacheStore {
	return &NoopListCacheStore{}
}

func (s *NoopListCacheStore) Get(context.Context, string, string) ([]byte, bool, error) {
	return nil, false, nil
}

func (s *NoopListCacheStore) Set(context.Context, string, string, []byte, time.Duration) error {
	return nil
}

type memoryCacheEntry struct {
	payload   []byte
	expiresAt time.Time
}

type InMemoryListCacheStore struct {
	mu    sync.RWMutex
	store map[string]map[string]memoryCacheEntry
	now   func() time.Time
}

func NewInMemoryListCacheStore() *InMemoryListCacheStore {
	return &InMemoryListCacheStore{
		store: make(map[string]map[string]memoryCacheEntry),
		now:   time.Now,
	}
}

func (s *InMemoryListCacheStore) Get(_ context.Context, namespace, key string) ([]byte, bool, error) {
	now := s.now()
	s.mu.RLock()
	entry, ok := s.store[namespace][key]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !now.Before(entry.expiresAt) {
		s.mu.Lock()
		if ns, ok2 := s.store[namespace]; ok2 {
			if cur, ok3 := ns[key]; ok3 && !now.Before(cur.expiresAt) {
				delete(ns, key)
			}
			if len(ns) == 0 {
				delete(s.store, namespace)
			}
		}
		s.mu.Unlock()
		return nil, false, nil
	}
	return append([]byte(nil), entry.payload...), true, nil
}

func (s *InMemoryListCacheStore) Set(_ context.Context, namespace, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ns, ok := s.store[namespace]
	if !ok {
		ns = make(map[string]memoryCacheEntry)
		s.store[namespace] = ns
	}
	ns[key] = memoryCacheEntry{
		payload:   append([]byte(nil), value...),
		expiresAt: s.now().Add(ttl),
	}
	return nil
}

// SturdyListCacheStore is a sharded in-process store with bounded capacity.
// Its TTL is fixed when the client is built; the per-call ttl only gates
// whether a value is stored at all.
type SturdyListCacheStore struct {
	client *sturdyc.Client[[]byte]
}

func NewSturdyListCacheStore(capacity int, ttl time.Duration) *SturdyListCacheStore {
	if capacity <= 0 {
		capacity = 10000
	}
	return &SturdyListCacheStore{client: sturdyc.New[[]byte](capacity, 10, ttl, 10)}
}

func (s *SturdyListCacheStore) Get(_ context.Context, namespace, key string) ([]byte, bool, error) {
	v, ok := s.client.Get(namespace + ":" + key)
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (s *SturdyListCacheStore) Set(_ context.Context, namespace, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	s.client.Set(namespace+":"+key, append([]byte(nil), value...))
	return nil
}
