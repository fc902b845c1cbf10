package memory

import (
	"context"
	"sync"
	"time"

	"github.com/BrandonDHaskell/Portunus/keypad/internal/portunus/store"
	"github.com/BrandonDHaskell/Portunus/keypad/internal/portunus/types"
)

// CodeStore is an in-memory store.CodeStore.  It has its own lock, separate
// from the config cache, so authorization never waits on heartbeats.
type CodeStore struct {
	mu         sync.RWMutex
	nextID     int64
	pointCodes map[int64]store.PointCode
	users      map[int64]store.AccessUser
	grants     map[int64]map[int64]struct{} // user id -> point ids
}

func NewCodeStore() *CodeStore {
	return &CodeStore{
		pointCodes: make(map[int64]store.PointCode),
		users:      make(map[int64]store.AccessUser),
		grants:     make(map[int64]map[int64]struct{}),
	}
}

// AddPointCode registers an operator-entered point code.
func (s *CodeStore) AddPointCode(pc store.PointCode) (store.PointCode, error) {
	if err := types.ValidateCode(pc.Code); err != nil {
		return store.PointCode{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	pc.ID = s.nextID
	s.pointCodes[pc.ID] = pc
	return pc, nil
}

func (s *CodeStore) SetPointCodeEnabled(id int64, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pc, ok := s.pointCodes[id]
	if !ok {
		return store.ErrNotFound
	}
	pc.Enabled = enabled
	s.pointCodes[id] = pc
	return nil
}

// AddUser registers an operator-entered account user.
func (s *CodeStore) AddUser(u store.AccessUser) (store.AccessUser, error) {
	if err := types.ValidateCode(u.Code); err != nil {
		return store.AccessUser{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	u.ID = s.nextID
	s.users[u.ID] = u
	return u, nil
}

func (s *CodeStore) GrantPoint(userID, pointID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return store.ErrNotFound
	}
	g, ok := s.grants[userID]
	if !ok {
		g = make(map[int64]struct{})
		s.grants[userID] = g
	}
	g[pointID] = struct{}{}
	return nil
}

func (s *CodeStore) SoftDeleteUser(userID int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	t := at.UTC()
	u.DeletedAt = &t
	s.users[userID] = u
	return nil
}

func (s *CodeStore) FindPointCode(_ context.Context, pointID int64, code string) (store.PointCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var found *store.PointCode
	for _, pc := range s.pointCodes {
		if pc.PointID != pointID || !pc.Enabled || pc.Code != code {
			continue
		}
		if found == nil || pc.ID < found.ID {
			c := pc
			found = &c
		}
	}
	if found == nil {
		return store.PointCode{}, store.ErrNotFound
	}
	return *found, nil
}

func (s *CodeStore) FindGrantedUser(_ context.Context, pointID int64, code string) (store.AccessUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var found *store.AccessUser
	for _, u := range s.users {
		if u.DeletedAt != nil || u.Code != code {
			continue
		}
		if _, ok := s.grants[u.ID][pointID]; !ok {
			continue
		}
		if found == nil || u.ID < found.ID {
			c := u
			found = &c
		}
	}
	if found == nil {
		return store.AccessUser{}, store.ErrNotFound
	}
	return *found, nil
}

func (s *CodeStore) GetUser(_ context.Context, userID int64) (store.AccessUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return store.AccessUser{}, store.ErrNotFound
	}
	return u, nil
}
