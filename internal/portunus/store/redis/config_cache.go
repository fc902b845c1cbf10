// Package redis is a ConfigCache backed by Redis.  Each point is one hash
// carrying the code snapshot, the newest heartbeat and a version token;
// writes run under WATCH so two racing heartbeats cannot interleave.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/BrandonDHaskell/Portunus/keypad/internal/portunus/store"
)

const keyPrefix = "portunus:config:"

const (
	fieldCodes       = "codes"
	fieldHeartbeatAt = "heartbeat_at_ms"
	fieldVersion     = "version"
)

type ConfigCache struct {
	client goredis.UniversalClient

	// beforeCommit runs between the watched read and EXEC.  Tests use it
	// to force a lost race.
	beforeCommit func()
}

func NewConfigCache(client goredis.UniversalClient) *ConfigCache {
	return &ConfigCache{client: client}
}

// Dial parses url, connects and pings.
func Dial(ctx context.Context, url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func key(pointID int64) string {
	return keyPrefix + strconv.FormatInt(pointID, 10)
}

func (c *ConfigCache) Get(ctx context.Context, pointID int64) (store.CachedConfig, error) {
	fields, err := c.client.HGetAll(ctx, key(pointID)).Result()
	if err != nil {
		return store.CachedConfig{}, wrapErr("ConfigCache.Get", err)
	}
	ent, ok, err := decodeEntry(fields)
	if err != nil {
		return store.CachedConfig{}, fmt.Errorf("ConfigCache.Get point %d: %w", pointID, err)
	}
	if !ok {
		return store.CachedConfig{}, fmt.Errorf("ConfigCache.Get point %d: %w", pointID, store.ErrNotFound)
	}
	return store.CachedConfig{
		PointID:     pointID,
		Codes:       ent.codes,
		HeartbeatAt: time.UnixMilli(ent.heartbeatMs).UTC(),
	}, nil
}

// Upsert fails with store.ErrConflict when another writer changed the point
// between the watched read and the commit.  It is not retried here.
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

	k := key(pointID)
	obsMs := observedAt.UTC().UnixMilli()
	var hbMs int64

	txf := func(tx *goredis.Tx) error {
		fields, err := tx.HGetAll(ctx, k).Result()
		if err != nil {
			return err
		}
		ent, ok, err := decodeEntry(fields)
		if err != nil {
			return err
		}

		hbMs = obsMs
		if ok && ent.heartbeatMs > obsMs {
			hbMs = ent.heartbeatMs
		}

		if c.beforeCommit != nil {
			c.beforeCommit()
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.HSet(ctx, k,
				fieldCodes, string(codesJSON),
				fieldHeartbeatAt, hbMs,
				fieldVersion, ent.version+1,
			)
			return nil
		})
		return err
	}

	if err := c.client.Watch(ctx, txf, k); err != nil {
		return store.UpsertResult{}, wrapErr("ConfigCache.Upsert", err)
	}
	return store.UpsertResult{
		Accepted:    true,
		Codes:       append([]string{}, codes...),
		HeartbeatAt: time.UnixMilli(hbMs).UTC(),
	}, nil
}

type entry struct {
	codes       []string
	heartbeatMs int64
	version     int64
}

func decodeEntry(fields map[string]string) (entry, bool, error) {
	if len(fields) == 0 {
		return entry{}, false, nil
	}
	var ent entry
	var err error
	if ent.heartbeatMs, err = strconv.ParseInt(fields[fieldHeartbeatAt], 10, 64); err != nil {
		return entry{}, false, fmt.Errorf("decode %s: %w", fieldHeartbeatAt, err)
	}
	if v := fields[fieldVersion]; v != "" {
		if ent.version, err = strconv.ParseInt(v, 10, 64); err != nil {
			return entry{}, false, fmt.Errorf("decode %s: %w", fieldVersion, err)
		}
	}
	ent.codes = []string{}
	if err := json.Unmarshal([]byte(fields[fieldCodes]), &ent.codes); err != nil {
		return entry{}, false, fmt.Errorf("decode %s: %w", fieldCodes, err)
	}
	if ent.codes == nil {
		ent.codes = []string{}
	}
	return ent, true, nil
}

func wrapErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, goredis.Nil):
		return fmt.Errorf("%s: %w", op, store.ErrNotFound)
	case errors.Is(err, goredis.TxFailedErr):
		return fmt.Errorf("%s: %w", op, store.ErrConflict)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%s: %w", op, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, store.ErrUnavailable, err)
	}
}
