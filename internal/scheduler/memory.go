// internal/scheduler/memory.go
package scheduler

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-process DeadlineStore for tests and single-node
// development. Its claim semantics match the Redis implementation:
// RemoveIfPresent returns true for exactly one of any set of racing
// callers.
type MemoryStore struct {
	mu      sync.Mutex
	members map[string]int64 // member -> dueAtMs
	latest  map[string]string
	subs    map[int]chan struct{}
	nextSub int
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		members: make(map[string]int64),
		latest:  make(map[string]string),
		subs:    make(map[int]chan struct{}),
	}
}

func (s *MemoryStore) Add(_ context.Context, member string, dueAtMs int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[member] = dueAtMs
	return nil
}

func (s *MemoryStore) RemoveIfPresent(_ context.Context, member string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[member]; !ok {
		return false, nil
	}
	delete(s.members, member)
	return true, nil
}

func (s *MemoryStore) DueBefore(_ context.Context, nowMs int64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	type entry struct {
		member string
		due    int64
	}
	var due []entry
	for member, dueAt := range s.members {
		if dueAt <= nowMs {
			due = append(due, entry{member, dueAt})
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].due < due[j].due })
	out := make([]string, len(due))
	for i, e := range due {
		out[i] = e.member
	}
	return out, nil
}

// SetLatest ignores the TTL; in-process pointers die with the process
// anyway.
func (s *MemoryStore) SetLatest(_ context.Context, key, member string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest[key] = member
	return nil
}

func (s *MemoryStore) GetLatest(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	member, ok := s.latest[key]
	return member, ok, nil
}

func (s *MemoryStore) ClearLatest(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.latest, key)
	return nil
}

func (s *MemoryStore) Wake(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return nil
}

func (s *MemoryStore) Subscribe(_ context.Context) (<-chan struct{}, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	ch := make(chan struct{}, 1)
	s.subs[id] = ch
	stop := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
	return ch, stop, nil
}
