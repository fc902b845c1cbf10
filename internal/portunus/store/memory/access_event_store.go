package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/BrandonDHaskell/Portunus/keypad/internal/portunus/store"
)

// AccessEventStore is an in-memory append-only log of access decisions.
// It is intended for use in tests and dev environments.
type AccessEventStore struct {
	mu     sync.Mutex
	nextID int64
	events []store.AccessEventRecord
}

func NewAccessEventStore() *AccessEventStore {
	return &AccessEventStore{}
}

func (s *AccessEventStore) RecordEvent(_ context.Context, rec store.AccessEventRecord) (int64, error) {
	if rec.At.IsZero() {
		rec.At = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	rec.ID = s.nextID
	s.events = append(s.events, rec)
	return rec.ID, nil
}

func (s *AccessEventStore) ListEvents(_ context.Context, q store.EventQuery) ([]store.AccessEventRecord, error) {
	want := make(map[int64]struct{}, len(q.PointIDs))
	for _, id := range q.PointIDs {
		want[id] = struct{}{}
	}

	s.mu.Lock()
	var out []store.AccessEventRecord
	for _, ev := range s.events {
		if _, ok := want[ev.PointID]; ok {
			out = append(out, ev)
		}
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].At.Equal(out[j].At) {
			return out[i].At.After(out[j].At)
		}
		return out[i].ID > out[j].ID
	})
	if limit := q.ClampLimit(); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Events returns a copy of all recorded events in insertion order.  Test-only helper.
func (s *AccessEventStore) Events() []store.AccessEventRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.AccessEventRecord, len(s.events))
	copy(out, s.events)
	return out
}
