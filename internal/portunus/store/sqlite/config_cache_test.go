package sqlite_test

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/BrandonDHaskell/Portunus/keypad/internal/portunus/store"
	sqlitestore "github.com/BrandonDHaskell/Portunus/keypad/internal/portunus/store/sqlite"
)

// ═══════════════════════════════════════════════════════════════════════════
// Upsert: first heartbeat creates the entry
// ═══════════════════════════════════════════════════════════════════════════

func TestConfigCache_Upsert_CreatesEntry(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	_, p := seedPoint(t, sqlitestore.NewPointStore(conn, w), 1, "Hub", "Door")
	cc := sqlitestore.NewConfigCache(conn, w)
	ctx := context.Background()

	if _, err := cc.Get(ctx, p.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound before first heartbeat, got %v", err)
	}

	now := time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC)
	res, err := cc.Upsert(ctx, p.ID, []string{"1234", "5678"}, now)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if !res.Accepted {
		t.Error("expected accepted=true")
	}
	if !res.HeartbeatAt.Equal(now) {
		t.Errorf("expected heartbeat_at=%s, got %s", now, res.HeartbeatAt)
	}

	got, err := cc.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !reflect.DeepEqual(got.Codes, []string{"1234", "5678"}) {
		t.Errorf("unexpected codes %v", got.Codes)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Upsert: snapshot replace, clock max
// ═══════════════════════════════════════════════════════════════════════════

func TestConfigCache_Upsert_ReplacesSnapshot(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	_, p := seedPoint(t, sqlitestore.NewPointStore(conn, w), 1, "Hub", "Door")
	cc := sqlitestore.NewConfigCache(conn, w)
	ctx := context.Background()

	base := time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC)
	if _, err := cc.Upsert(ctx, p.ID, []string{"111"}, base); err != nil {
		t.Fatalf("heartbeat 1: %v", err)
	}
	if _, err := cc.Upsert(ctx, p.ID, []string{"222"}, base.Add(time.Second)); err != nil {
		t.Fatalf("heartbeat 2: %v", err)
	}

	got, err := cc.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !reflect.DeepEqual(got.Codes, []string{"222"}) {
		t.Errorf("expected codes [222], got %v", got.Codes)
	}
}

func TestConfigCache_Upsert_StaleHeartbeatDoesNotRegress(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	_, p := seedPoint(t, sqlitestore.NewPointStore(conn, w), 1, "Hub", "Door")
	cc := sqlitestore.NewConfigCache(conn, w)
	ctx := context.Background()

	base := time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC)
	if _, err := cc.Upsert(ctx, p.ID, []string{"111"}, base); err != nil {
		t.Fatalf("heartbeat 1: %v", err)
	}
	res, err := cc.Upsert(ctx, p.ID, []string{}, base.Add(-30*time.Second))
	if err != nil {
		t.Fatalf("stale heartbeat: %v", err)
	}

	if !res.HeartbeatAt.Equal(base) {
		t.Errorf("expected heartbeat_at to stay %s, got %s", base, res.HeartbeatAt)
	}
	if len(res.Codes) != 0 {
		t.Errorf("expected stale heartbeat to replace codes with empty, got %v", res.Codes)
	}
}

func TestConfigCache_Upsert_UnknownPoint(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	cc := sqlitestore.NewConfigCache(conn, w)

	_, err := cc.Upsert(context.Background(), 999, []string{"1"}, time.Now())
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing point, got %v", err)
	}
}

func TestConfigCache_Upsert_Concurrent(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	_, p := seedPoint(t, sqlitestore.NewPointStore(conn, w), 1, "Hub", "Door")
	cc := sqlitestore.NewConfigCache(conn, w)
	ctx := context.Background()

	base := time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := cc.Upsert(ctx, p.ID, []string{"c"}, base.Add(time.Duration(i)*time.Second)); err != nil {
				t.Errorf("upsert %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	got, err := cc.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if want := base.Add(19 * time.Second); !got.HeartbeatAt.Equal(want) {
		t.Errorf("expected heartbeat_at=%s, got %s", want, got.HeartbeatAt)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Heartbeat history and pruning
// ═══════════════════════════════════════════════════════════════════════════

func TestConfigCache_PruneOlderThan(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	_, p := seedPoint(t, sqlitestore.NewPointStore(conn, w), 1, "Hub", "Door")
	cc := sqlitestore.NewConfigCache(conn, w)
	ctx := context.Background()

	now := time.Now().UTC()
	for _, at := range []time.Time{now.AddDate(0, 0, -40), now.AddDate(0, 0, -35), now.AddDate(0, 0, -1)} {
		if _, err := cc.Upsert(ctx, p.ID, nil, at); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}

	deleted, err := cc.PruneOlderThan(ctx, now.AddDate(0, 0, -30))
	if err != nil {
		t.Fatalf("PruneOlderThan: %v", err)
	}
	if deleted != 2 {
		t.Errorf("expected 2 pruned, got %d", deleted)
	}

	var count int
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM point_heartbeats`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 remaining heartbeat row, got %d", count)
	}

	if _, err := cc.Get(ctx, p.ID); err != nil {
		t.Errorf("cached config must survive pruning: %v", err)
	}
}

func TestConfigCache_Upsert_MillisecondPrecision(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	_, p := seedPoint(t, sqlitestore.NewPointStore(conn, w), 1, "Hub", "Door")
	cc := sqlitestore.NewConfigCache(conn, w)

	observed := time.Date(2026, 3, 1, 12, 0, 0, 123456789, time.UTC)
	res, err := cc.Upsert(context.Background(), p.ID, nil, observed)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	want := time.Date(2026, 3, 1, 12, 0, 0, 123000000, time.UTC)
	if !res.HeartbeatAt.Equal(want) {
		t.Errorf("expected heartbeat_at=%s, got %s", want, res.HeartbeatAt)
	}
}
