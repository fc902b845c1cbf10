package memory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/Portunus/keypad/internal/portunus/store"
	"github.com/BrandonDHaskell/Portunus/keypad/internal/portunus/store/memory"
)

func TestConfigCache_GetMissing(t *testing.T) {
	c := memory.NewConfigCache()
	_, err := c.Get(context.Background(), 1)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestConfigCache_ReplacesSnapshot(t *testing.T) {
	c := memory.NewConfigCache()
	ctx := context.Background()
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	_, err := c.Upsert(ctx, 1, []string{"111"}, t0)
	require.NoError(t, err)
	_, err = c.Upsert(ctx, 1, []string{"222"}, t0.Add(time.Second))
	require.NoError(t, err)

	got, err := c.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"222"}, got.Codes)
	assert.Equal(t, t0.Add(time.Second), got.HeartbeatAt)
}

func TestConfigCache_StaleHeartbeatKeepsClock(t *testing.T) {
	c := memory.NewConfigCache()
	ctx := context.Background()
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	_, err := c.Upsert(ctx, 1, []string{"111"}, t0)
	require.NoError(t, err)

	res, err := c.Upsert(ctx, 1, []string{"333"}, t0.Add(-time.Minute))
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.Equal(t, t0, res.HeartbeatAt, "stale heartbeat must not move the clock back")
	assert.Equal(t, []string{"333"}, res.Codes, "stale heartbeat still refreshes the snapshot")
}

func TestConfigCache_EmptySnapshotIsNotNil(t *testing.T) {
	c := memory.NewConfigCache()
	res, err := c.Upsert(context.Background(), 1, nil, time.Now())
	require.NoError(t, err)
	assert.NotNil(t, res.Codes)
	assert.Empty(t, res.Codes)
}

func TestConfigCache_ReturnedSnapshotIsCopy(t *testing.T) {
	c := memory.NewConfigCache()
	ctx := context.Background()
	codes := []string{"111"}
	_, err := c.Upsert(ctx, 1, codes, time.Now())
	require.NoError(t, err)
	codes[0] = "999"

	got, err := c.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"111"}, got.Codes)
}

func TestConfigCache_ConcurrentUpsertsStayMonotonic(t *testing.T) {
	c := memory.NewConfigCache()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = c.Upsert(ctx, 1, []string{"code"}, base.Add(time.Duration(i)*time.Millisecond))
		}(i)
	}
	wg.Wait()

	got, err := c.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, base.Add(63*time.Millisecond), got.HeartbeatAt)
	assert.Equal(t, 64, c.HistoryLen())
}

func TestConfigCache_PruneOlderThan(t *testing.T) {
	c := memory.NewConfigCache()
	ctx := context.Background()
	now := time.Now().UTC()

	_, _ = c.Upsert(ctx, 1, nil, now.AddDate(0, 0, -40))
	_, _ = c.Upsert(ctx, 2, nil, now.AddDate(0, 0, -1))

	deleted, err := c.PruneOlderThan(ctx, now.AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
	assert.Equal(t, 1, c.HistoryLen())

	// The cached snapshot survives pruning.
	_, err = c.Get(ctx, 1)
	assert.NoError(t, err)
}

func TestCodeStore_RejectsMalformedCodes(t *testing.T) {
	cs := memory.NewCodeStore()
	_, err := cs.AddPointCode(store.PointCode{PointID: 1, Code: "12"})
	assert.Error(t, err)
	_, err = cs.AddUser(store.AccessUser{Code: "abcd"})
	assert.Error(t, err)
}

func TestCodeStore_FindGrantedUser(t *testing.T) {
	cs := memory.NewCodeStore()
	ctx := context.Background()
	u, err := cs.AddUser(store.AccessUser{AccountID: 1, Name: "ann", Code: "4444"})
	require.NoError(t, err)

	_, err = cs.FindGrantedUser(ctx, 10, "4444")
	assert.ErrorIs(t, err, store.ErrNotFound, "user not granted the point yet")

	require.NoError(t, cs.GrantPoint(u.ID, 10))
	got, err := cs.FindGrantedUser(ctx, 10, "4444")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	require.NoError(t, cs.SoftDeleteUser(u.ID, time.Now()))
	_, err = cs.FindGrantedUser(ctx, 10, "4444")
	assert.ErrorIs(t, err, store.ErrNotFound)

	// Soft-deleted users stay resolvable by id.
	got, err = cs.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.DeletedAt)
}

func TestAccessEventStore_OrdersByAtThenID(t *testing.T) {
	es := memory.NewAccessEventStore()
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	id1, _ := es.RecordEvent(ctx, store.AccessEventRecord{PointID: 1, At: at, Code: "a"})
	id2, _ := es.RecordEvent(ctx, store.AccessEventRecord{PointID: 1, At: at, Code: "b"})
	id3, _ := es.RecordEvent(ctx, store.AccessEventRecord{PointID: 1, At: at.Add(-time.Second), Code: "c"})
	_, _ = es.RecordEvent(ctx, store.AccessEventRecord{PointID: 2, At: at, Code: "other"})

	evs, err := es.ListEvents(ctx, store.EventQuery{PointIDs: []int64{1}})
	require.NoError(t, err)
	require.Len(t, evs, 3)
	assert.Equal(t, []int64{id2, id1, id3}, []int64{evs[0].ID, evs[1].ID, evs[2].ID})
}

func TestConfigCache_MillisecondPrecision(t *testing.T) {
	c := memory.NewConfigCache()
	local := time.FixedZone("UTC+2", 2*60*60)
	observed := time.Date(2026, 3, 1, 14, 0, 0, 123456789, local)

	res, err := c.Upsert(context.Background(), 1, nil, observed)
	require.NoError(t, err)

	want := time.Date(2026, 3, 1, 12, 0, 0, 123000000, time.UTC)
	assert.Equal(t, want, res.HeartbeatAt)

	got, err := c.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, want, got.HeartbeatAt)
}
