package memory

import (
	"context"
	"sync"
	"time"

	"github.com/BrandonDHaskell/Portunus/keypad/internal/portunus/store"
)

// ConfigCache is an in-memory store.ConfigCache.  Each point has its own
// lock so heartbeats for different points never contend, while the code
// snapshot and heartbeat time of one point always change together.
type ConfigCache struct {
	mu      sync.Mutex
	entries map[int64]*cacheEntry

	histMu  sync.Mutex
	history []heartbeatRow
}

type cacheEntry struct {
	mu          sync.Mutex
	set         bool
	codes       []string
	heartbeatAt time.Time
}

type heartbeatRow struct {
	pointID    int64
	receivedAt time.Time
	codeCount  int
}

func NewConfigCache() *ConfigCache {
	return &ConfigCache{
		entries: make(map[int64]*cacheEntry),
	}
}

func (c *ConfigCache) entry(pointID int64, create bool) *cacheEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[pointID]
	if !ok && create {
		e = &cacheEntry{}
		c.entries[pointID] = e
	}
	return e
}

func (c *ConfigCache) Get(_ context.Context, pointID int64) (store.CachedConfig, error) {
	e := c.entry(pointID, false)
	if e == nil {
		return store.CachedConfig{}, store.ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.set {
		return store.CachedConfig{}, store.ErrNotFound
	}
	return store.CachedConfig{
		PointID:     pointID,
		Codes:       cloneCodes(e.codes),
		HeartbeatAt: e.heartbeatAt,
	}, nil
}

func (c *ConfigCache) Upsert(_ context.Context, pointID int64, codes []string, observedAt time.Time) (store.UpsertResult, error) {
	if observedAt.IsZero() {
		observedAt = time.Now()
	}
	observedAt = time.UnixMilli(observedAt.UnixMilli()).UTC()

	e := c.entry(pointID, true)
	e.mu.Lock()
	e.codes = cloneCodes(codes)
	if !e.set || observedAt.After(e.heartbeatAt) {
		e.heartbeatAt = observedAt
	}
	e.set = true
	res := store.UpsertResult{
		Accepted:    true,
		Codes:       cloneCodes(e.codes),
		HeartbeatAt: e.heartbeatAt,
	}
	e.mu.Unlock()

	c.histMu.Lock()
	c.history = append(c.history, heartbeatRow{pointID: pointID, receivedAt: observedAt, codeCount: len(codes)})
	c.histMu.Unlock()

	return res, nil
}

// PruneOlderThan drops heartbeat history rows received before cutoff.  The
// cached snapshot itself is never pruned.
func (c *ConfigCache) PruneOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	c.histMu.Lock()
	defer c.histMu.Unlock()

	kept := c.history[:0]
	var deleted int64
	for _, row := range c.history {
		if row.receivedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, row)
	}
	c.history = kept
	return deleted, nil
}

// HistoryLen returns the number of retained heartbeat rows.  Test-only helper.
func (c *ConfigCache) HistoryLen() int {
	c.histMu.Lock()
	defer c.histMu.Unlock()
	return len(c.history)
}

// cloneCodes copies a snapshot and normalises nil to an empty slice.
func cloneCodes(codes []string) []string {
	out := make([]string, len(codes))
	copy(out, codes)
	return out
}
