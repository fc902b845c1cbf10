package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	dbpkg "github.com/BrandonDHaskell/Portunus/keypad/internal/db"
	"github.com/BrandonDHaskell/Portunus/keypad/internal/portunus/store"
)

// ConfigCache keeps the per-point code snapshot in point_configs and appends
// each heartbeat to point_heartbeats.  Writes run on the single writer, so
// the snapshot and heartbeat time of a point always change in one
// transaction.
type ConfigCache struct {
	reader *sql.DB
	writer *dbpkg.Worker
}

func NewConfigCache(reader *sql.DB, writer *dbpkg.Worker) *ConfigCache {
	return &ConfigCache{reader: reader, writer: writer}
}

func (c *ConfigCache) Get(ctx context.Context, pointID int64) (store.CachedConfig, error) {
	var codesJSON string
	var hbMs int64
	err := c.reader.QueryRowContext(ctx, `
SELECT codes_json, heartbeat_at_ms
FROM point_configs
WHERE point_id = ?;
`, pointID).Scan(&codesJSON, &hbMs)
	if err != nil {
		return store.CachedConfig{}, wrapErr("ConfigCache.Get", err)
	}

	codes, err := decodeCodes(codesJSON)
	if err != nil {
		return store.CachedConfig{}, fmt.Errorf("ConfigCache.Get point %d: %w", pointID, err)
	}
	return store.CachedConfig{
		PointID:     pointID,
		Codes:       codes,
		HeartbeatAt: time.UnixMilli(hbMs).UTC(),
	}, nil
}

func (c *ConfigCache) Upsert(ctx context.Context, pointID int64, codes []string, observedAt time.Time) (store.UpsertResult, error) {
	if observedAt.IsZero() {
		observedAt = time.Now().UTC()
	}
	if codes == nil {
		codes = []string{}
	}
	codesJSON, err := json.Marshal(codes)
	if err != nil {
		return store.UpsertResult{}, fmt.Errorf("ConfigCache.Upsert encode codes: %w", err)
	}
	obsMs := observedAt.UTC().UnixMilli()
	nowMs := time.Now().UTC().UnixMilli()

	var res store.UpsertResult
	err = c.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO point_configs(point_id, codes_json, heartbeat_at_ms, version, updated_at_ms)
VALUES (?, ?, ?, 1, ?)
ON CONFLICT(point_id) DO UPDATE SET
  codes_json      = excluded.codes_json,
  heartbeat_at_ms = MAX(point_configs.heartbeat_at_ms, excluded.heartbeat_at_ms),
  version         = point_configs.version + 1,
  updated_at_ms   = excluded.updated_at_ms;
`, pointID, string(codesJSON), obsMs, nowMs); err != nil {
			return fmt.Errorf("upsert point_configs: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
INSERT INTO point_heartbeats(point_id, received_at_ms, code_count)
VALUES (?, ?, ?);
`, pointID, obsMs, len(codes)); err != nil {
			return fmt.Errorf("insert point_heartbeats: %w", err)
		}

		var hbMs int64
		if err := tx.QueryRowContext(ctx, `
SELECT heartbeat_at_ms FROM point_configs WHERE point_id = ?;
`, pointID).Scan(&hbMs); err != nil {
			return fmt.Errorf("read back heartbeat: %w", err)
		}

		res = store.UpsertResult{
			Accepted:    true,
			Codes:       append([]string{}, codes...),
			HeartbeatAt: time.UnixMilli(hbMs).UTC(),
		}
		return nil
	})
	if err != nil {
		return store.UpsertResult{}, wrapErr("ConfigCache.Upsert", err)
	}
	return res, nil
}

// PruneOlderThan deletes heartbeat history rows received before cutoff and
// returns how many were removed.  point_configs is never pruned.
func (c *ConfigCache) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	cutoffMs := cutoff.UTC().UnixMilli()

	var deleted int64
	err := c.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
DELETE FROM point_heartbeats
WHERE received_at_ms < ?;
`, cutoffMs)
		if err != nil {
			return err
		}
		deleted, _ = res.RowsAffected()
		return nil
	})
	return deleted, wrapErr("ConfigCache.PruneOlderThan", err)
}

func decodeCodes(s string) ([]string, error) {
	codes := []string{}
	if err := json.Unmarshal([]byte(s), &codes); err != nil {
		return nil, fmt.Errorf("decode codes: %w", err)
	}
	if codes == nil {
		codes = []string{}
	}
	return codes, nil
}
