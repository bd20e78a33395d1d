package history

import (
	"context"
	"sort"
	"sync"
	"time"

	"mercator-hq/mailguard/pkg/analyzer"
)

// MemoryStore keeps entries in memory. Entries are lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []*Entry // insertion order
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, cloneEntry(entry))
	return nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, id string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries {
		if e.ID == id {
			return cloneEntry(e), nil
		}
	}
	return nil, ErrNotFound
}

// Query implements Store.
func (s *MemoryStore) Query(_ context.Context, query *Query) ([]*Entry, error) {
	s.mu.RLock()
	matched := make([]*Entry, 0)
	for i := len(s.entries) - 1; i >= 0; i-- {
		if matches(s.entries[i], query) {
			matched = append(matched, cloneEntry(s.entries[i]))
		}
	}
	s.mu.RUnlock()

	// Reverse insertion order already breaks ties newest first.
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})

	offset := 0
	if query != nil {
		offset = query.Offset
	}
	if offset >= len(matched) {
		return []*Entry{}, nil
	}
	matched = matched[offset:]
	if limit := query.limit(); len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// Count implements Store.
func (s *MemoryStore) Count(_ context.Context, userID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, e := range s.entries {
		if userID == "" || e.UserID == userID {
			n++
		}
	}
	return n, nil
}

// DeleteBefore implements Store.
func (s *MemoryStore) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.entries[:0]
	var deleted int64
	for _, e := range s.entries {
		if e.Timestamp.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	clear(s.entries[len(kept):])
	s.entries = kept
	return deleted, nil
}

// DeleteOldest implements Store.
func (s *MemoryStore) DeleteOldest(_ context.Context, keep int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if keep < 0 {
		keep = 0
	}
	excess := int64(len(s.entries)) - keep
	if excess <= 0 {
		return 0, nil
	}

	// Order oldest first by timestamp, then insertion.
	order := make([]int, len(s.entries))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return s.entries[order[a]].Timestamp.Before(s.entries[order[b]].Timestamp)
	})
	drop := make(map[int]bool, excess)
	for _, idx := range order[:excess] {
		drop[idx] = true
	}

	kept := make([]*Entry, 0, keep)
	for i, e := range s.entries {
		if !drop[i] {
			kept = append(kept, e)
		}
	}
	s.entries = kept
	return excess, nil
}

// Ping implements Store.
func (s *MemoryStore) Ping(context.Context) error { return nil }

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }

func matches(e *Entry, q *Query) bool {
	if q == nil {
		return true
	}
	if q.UserID != "" && e.UserID != q.UserID {
		return false
	}
	if q.Since != nil && e.Timestamp.Before(*q.Since) {
		return false
	}
	if q.Until != nil && e.Timestamp.After(*q.Until) {
		return false
	}
	return true
}

func cloneEntry(e *Entry) *Entry {
	c := *e
	c.Results = append([]analyzer.Result(nil), e.Results...)
	return &c
}
