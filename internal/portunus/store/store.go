package store

import (
	"context"
	"errors"
	"time"
)

// Error kinds shared by every backend.  Implementations wrap these so
// callers can use errors.Is regardless of the storage in use.
var (
	ErrNotFound    = errors.New("not found")
	ErrUnavailable = errors.New("store unavailable")
	ErrConflict    = errors.New("concurrent update conflict")
)

// CachedConfig is the device-reported mirror of a point's enrolled codes,
// together with the newest heartbeat observed for the point.
type CachedConfig struct {
	PointID     int64
	Codes       []string
	HeartbeatAt time.Time
}

// UpsertResult is the state recorded by ConfigCache.Upsert.
type UpsertResult struct {
	Accepted    bool
	Codes       []string
	HeartbeatAt time.Time
}

// ConfigCache holds the last code snapshot and heartbeat time per point.
//
// Upsert replaces the code snapshot wholesale and advances the heartbeat to
// max(stored, observedAt).  Both fields are written atomically per point.
// Heartbeat times are kept in UTC at millisecond precision by every
// implementation, so the same input yields the same ack on any backend.
type ConfigCache interface {
	Get(ctx context.Context, pointID int64) (CachedConfig, error)
	Upsert(ctx context.Context, pointID int64, codes []string, observedAt time.Time) (UpsertResult, error)
}

// HeartbeatLog is the append-only heartbeat history kept next to the cache.
type HeartbeatLog interface {
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
