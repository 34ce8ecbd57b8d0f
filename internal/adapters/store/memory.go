// Package store provides SeenStore implementations: in-process memory,
// SQLite, PostgreSQL and S3 conditional writes.
package store

import (
	"container/list"
	"context"

	"github.com/brianly1003/sftplister/internal/domain"
	"github.com/brianly1003/sftplister/internal/sync"
)

// MemoryStore keeps seen keys in a map guarded by a mutex.
// With maxKeys > 0 the oldest key is evicted once the limit is reached;
// an evicted key is accepted again if it reappears.
type MemoryStore struct {
	mu      sync.Mutex
	keys    map[string]*list.Element
	order   *list.List
	maxKeys int
	closed  bool
}

// NewMemoryStore creates an in-process store. maxKeys <= 0 keeps every key.
func NewMemoryStore(maxKeys int) *MemoryStore {
	return &MemoryStore{
		keys:    make(map[string]*list.Element),
		order:   list.New(),
		maxKeys: maxKeys,
	}
}

// PutIfAbsent records key and reports whether it was new.
func (s *MemoryStore) PutIfAbsent(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, domain.NewStoreError("put", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, domain.NewStoreError("put", key, domain.ErrStoreClosed)
	}

	if _, ok := s.keys[key]; ok {
		return false, nil
	}

	if s.maxKeys > 0 && s.order.Len() >= s.maxKeys {
		oldest := s.order.Front()
		s.order.Remove(oldest)
		delete(s.keys, oldest.Value.(string))
	}

	s.keys[key] = s.order.PushBack(key)
	return true, nil
}

// Count returns the number of retained keys.
func (s *MemoryStore) Count(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, domain.NewStoreError("count", "", domain.ErrStoreClosed)
	}
	return int64(len(s.keys)), nil
}

// Driver returns "memory".
func (s *MemoryStore) Driver() string { return "memory" }

// Close drops every key. Further calls fail with ErrStoreClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.keys = nil
	s.order.Init()
	return nil
}
