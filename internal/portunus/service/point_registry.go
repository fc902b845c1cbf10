package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/BrandonDHaskell/Portunus/keypad/internal/portunus/store"
)

// PointRegistry resolves point ids presented by devices.
type PointRegistry struct {
	store store.PointStore
}

func NewPointRegistry(st store.PointStore) *PointRegistry {
	return &PointRegistry{store: st}
}

// Resolve returns the point or ErrPointNotFound.
func (r *PointRegistry) Resolve(ctx context.Context, pointID int64) (store.Point, error) {
	if pointID <= 0 {
		return store.Point{}, ErrInvalidPointID
	}
	p, err := r.store.GetPoint(ctx, pointID)
	if errors.Is(err, store.ErrNotFound) {
		return store.Point{}, fmt.Errorf("point %d: %w", pointID, ErrPointNotFound)
	}
	if err != nil {
		return store.Point{}, storeErr("resolve point", err)
	}
	return p, nil
}
