package task

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MemoryStore is an in-process Store used when no Redis URL is
// configured and throughout the tests. Same contract as RedisStore,
// without durability.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]Task
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]Task)}
}

func (s *MemoryStore) Put(ctx context.Context, threadTS string, t Task) error {
	threadTS = strings.TrimSpace(threadTS)
	if threadTS == "" {
		return fmt.Errorf("thread_ts is required")
	}
	s.mu.Lock()
	s.items[threadTS] = t
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, threadTS string) error {
	threadTS = strings.TrimSpace(threadTS)
	if threadTS == "" {
		return fmt.Errorf("thread_ts is required")
	}
	s.mu.Lock()
	delete(s.items, threadTS)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) ListAll(ctx context.Context) ([]Entry, error) {
	s.mu.RLock()
	out := make([]Entry, 0, len(s.items))
	for threadTS, t := range s.items {
		out = append(out, Entry{ThreadTS: threadTS, Task: t})
	}
	s.mu.RUnlock()
	return out, nil
}
