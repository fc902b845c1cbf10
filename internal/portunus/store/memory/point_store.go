package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/BrandonDHaskell/Portunus/keypad/internal/portunus/store"
)

// PointStore is an in-memory store.PointStore.  AddHub and AddPoint stand in
// for the admin surface in tests and dev environments.
type PointStore struct {
	mu          sync.RWMutex
	nextHubID   int64
	nextPointID int64
	hubs        map[int64]store.Hub
	points      map[int64]store.Point
}

func NewPointStore() *PointStore {
	return &PointStore{
		hubs:   make(map[int64]store.Hub),
		points: make(map[int64]store.Point),
	}
}

// AddHub stores h, assigning an id when h.ID is zero.
func (s *PointStore) AddHub(h store.Hub) store.Hub {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h.ID == 0 {
		s.nextHubID++
		h.ID = s.nextHubID
	} else if h.ID > s.nextHubID {
		s.nextHubID = h.ID
	}
	s.hubs[h.ID] = h
	return h
}

// AddPoint stores p, assigning an id when p.ID is zero.
func (s *PointStore) AddPoint(p store.Point) store.Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == 0 {
		s.nextPointID++
		p.ID = s.nextPointID
	} else if p.ID > s.nextPointID {
		s.nextPointID = p.ID
	}
	s.points[p.ID] = p
	return p
}

func (s *PointStore) GetHub(_ context.Context, hubID int64) (store.Hub, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.hubs[hubID]
	if !ok {
		return store.Hub{}, store.ErrNotFound
	}
	return h, nil
}

func (s *PointStore) GetPoint(_ context.Context, pointID int64) (store.Point, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.points[pointID]
	if !ok {
		return store.Point{}, store.ErrNotFound
	}
	return p, nil
}

func (s *PointStore) ListPointsByHub(_ context.Context, hubID int64) ([]store.Point, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []store.Point
	for _, p := range s.points {
		if p.HubID == hubID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *PointStore) ListPointsByAccount(_ context.Context, accountID int64) ([]store.PointSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []store.PointSummary
	for _, p := range s.points {
		h, ok := s.hubs[p.HubID]
		if !ok || h.AccountID != accountID {
			continue
		}
		out = append(out, store.PointSummary{Point: p, HubName: h.Name})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].HubName != out[j].HubName {
			return out[i].HubName < out[j].HubName
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
