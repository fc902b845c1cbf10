package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/Portunus/keypad/internal/portunus/service"
	"github.com/BrandonDHaskell/Portunus/keypad/internal/portunus/store"
	"github.com/BrandonDHaskell/Portunus/keypad/internal/portunus/types"
)

// ── Matching ─────────────────────────────────────────────────────────────────

func TestAuthorize_PointCodeGrants(t *testing.T) {
	f := newFixture(t)
	_, err := f.codes.AddPointCode(store.PointCode{PointID: f.point.ID, Name: "Cleaner", Code: "5555", Enabled: true})
	require.NoError(t, err)

	d, eventID, err := f.access(nil).Authorize(context.Background(), f.point.ID, "5555", f.clock.Now())
	require.NoError(t, err)

	assert.True(t, d.Granted)
	assert.Equal(t, types.SourcePointCode, d.Source)
	assert.Equal(t, "Cleaner", d.CodeName)

	events := f.events.Events()
	require.Len(t, events, 1)
	assert.Equal(t, eventID, events[0].ID)
	assert.Equal(t, types.AccessGrantedPointCode, events[0].Access)
	assert.Equal(t, "Cleaner", events[0].CodeName)
	assert.Nil(t, events[0].UserID)
}

func TestAuthorize_UserCodeGrants(t *testing.T) {
	f := newFixture(t)
	u, err := f.codes.AddUser(store.AccessUser{AccountID: testAccount, Name: "Ann", Code: "4321"})
	require.NoError(t, err)
	require.NoError(t, f.codes.GrantPoint(u.ID, f.point.ID))

	d, _, err := f.access(nil).Authorize(context.Background(), f.point.ID, "4321", f.clock.Now())
	require.NoError(t, err)

	assert.True(t, d.Granted)
	assert.Equal(t, types.SourceUser, d.Source)
	require.NotNil(t, d.UserID)
	assert.Equal(t, u.ID, *d.UserID)

	events := f.events.Events()
	require.Len(t, events, 1)
	assert.Equal(t, types.AccessGrantedUser, events[0].Access)
	require.NotNil(t, events[0].UserID)
	assert.Equal(t, u.ID, *events[0].UserID)
}

func TestAuthorize_PointCodeWinsOverUser(t *testing.T) {
	f := newFixture(t)
	_, err := f.codes.AddPointCode(store.PointCode{PointID: f.point.ID, Name: "Shared", Code: "7777", Enabled: true})
	require.NoError(t, err)
	u, err := f.codes.AddUser(store.AccessUser{AccountID: testAccount, Name: "Bob", Code: "7777"})
	require.NoError(t, err)
	require.NoError(t, f.codes.GrantPoint(u.ID, f.point.ID))

	d, _, err := f.access(nil).Authorize(context.Background(), f.point.ID, "7777", f.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, types.SourcePointCode, d.Source)
}

func TestAuthorize_DisabledPointCodeFallsThroughToUser(t *testing.T) {
	f := newFixture(t)
	pc, err := f.codes.AddPointCode(store.PointCode{PointID: f.point.ID, Code: "7777", Enabled: true})
	require.NoError(t, err)
	require.NoError(t, f.codes.SetPointCodeEnabled(pc.ID, false))
	u, err := f.codes.AddUser(store.AccessUser{AccountID: testAccount, Code: "7777"})
	require.NoError(t, err)
	require.NoError(t, f.codes.GrantPoint(u.ID, f.point.ID))

	d, _, err := f.access(nil).Authorize(context.Background(), f.point.ID, "7777", f.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, types.SourceUser, d.Source)
}

func TestAuthorize_Denials(t *testing.T) {
	f := newFixture(t)
	other := f.points.AddPoint(store.Point{HubID: f.hub.ID, Name: "Back Door"})

	ungranted, err := f.codes.AddUser(store.AccessUser{AccountID: testAccount, Code: "1000"})
	require.NoError(t, err)
	require.NoError(t, f.codes.GrantPoint(ungranted.ID, other.ID))

	deleted, err := f.codes.AddUser(store.AccessUser{AccountID: testAccount, Code: "2000"})
	require.NoError(t, err)
	require.NoError(t, f.codes.GrantPoint(deleted.ID, f.point.ID))
	require.NoError(t, f.codes.SoftDeleteUser(deleted.ID, f.clock.Now()))

	_, err = f.codes.AddPointCode(store.PointCode{PointID: other.ID, Code: "3000", Enabled: true})
	require.NoError(t, err)

	svc := f.access(nil)
	for _, code := range []string{"1000", "2000", "3000", "9999", "", "12ab", "' OR 1=1 --"} {
		d, _, err := svc.Authorize(context.Background(), f.point.ID, code, f.clock.Now())
		require.NoError(t, err, "code %q", code)
		assert.False(t, d.Granted, "code %q", code)
		assert.Equal(t, types.SourceNone, d.Source, "code %q", code)
	}

	events := f.events.Events()
	require.Len(t, events, 7)
	assert.Equal(t, "", events[4].Code)
	assert.Equal(t, "12ab", events[5].Code)
	for _, ev := range events {
		assert.Equal(t, types.AccessDenied, ev.Access)
	}
}

func TestAuthorize_NotGatedOnConnectivity(t *testing.T) {
	f := newFixture(t)
	_, err := f.codes.AddPointCode(store.PointCode{PointID: f.point.ID, Code: "5555", Enabled: true})
	require.NoError(t, err)

	// The point has never sent a heartbeat and classifies as Dead.
	d, _, err := f.access(nil).Authorize(context.Background(), f.point.ID, "5555", f.clock.Now())
	require.NoError(t, err)
	assert.True(t, d.Granted)
}

func TestAuthorize_DisablingCodeDeniesWithoutTouchingHeartbeatState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pc, err := f.codes.AddPointCode(store.PointCode{PointID: f.point.ID, Name: "Cleaner", Code: "5555", Enabled: true})
	require.NoError(t, err)

	_, err = f.heartbeats().Ingest(ctx, f.point.ID, []string{"5555"}, f.clock.Now())
	require.NoError(t, err)
	before, err := f.cache.Get(ctx, f.point.ID)
	require.NoError(t, err)

	svc := f.access(nil)
	d, _, err := svc.Authorize(ctx, f.point.ID, "5555", f.clock.Now())
	require.NoError(t, err)
	require.True(t, d.Granted)

	require.NoError(t, f.codes.SetPointCodeEnabled(pc.ID, false))
	f.clock.Advance(time.Second)

	d, _, err = svc.Authorize(ctx, f.point.ID, "5555", f.clock.Now())
	require.NoError(t, err)
	assert.False(t, d.Granted)
	assert.Equal(t, types.SourceNone, d.Source)

	after, err := f.cache.Get(ctx, f.point.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after, "authorization must not write the config cache")
	assert.Equal(t, 1, f.cache.HistoryLen())

	events := f.events.Events()
	require.Len(t, events, 2)
	assert.Equal(t, types.AccessDenied, events[1].Access)
}

// ── Failure paths ────────────────────────────────────────────────────────────

func TestAuthorize_UnknownPoint_NoEvent(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.access(nil).Authorize(context.Background(), 999, "1234", f.clock.Now())
	require.ErrorIs(t, err, service.ErrPointNotFound)
	assert.True(t, service.IsNotFound(err))
	assert.Empty(t, f.events.Events())
	assert.Empty(t, f.pub.Published())
}

func TestAuthorize_EventAppendFailureFailsDecision(t *testing.T) {
	f := newFixture(t)
	_, err := f.codes.AddPointCode(store.PointCode{PointID: f.point.ID, Code: "5555", Enabled: true})
	require.NoError(t, err)

	d, _, err := f.access(failingEventStore{}).Authorize(context.Background(), f.point.ID, "5555", f.clock.Now())
	require.ErrorIs(t, err, service.ErrStoreUnavailable)
	assert.True(t, errors.Is(err, errDiskGone))
	assert.False(t, d.Granted)
	assert.Empty(t, f.pub.Published(), "nothing is published without a durable record")
}

// ── Publishing ───────────────────────────────────────────────────────────────

func TestAuthorize_PublishesAfterRecording(t *testing.T) {
	f := newFixture(t)

	_, eventID, err := f.access(nil).Authorize(context.Background(), f.point.ID, "0000", f.clock.Now())
	require.NoError(t, err)

	pub := f.pub.Published()
	require.Len(t, pub, 1)
	assert.Equal(t, eventID, pub[0].ID)
	assert.Equal(t, f.point.ID, pub[0].PointID)
}

func TestAuthorize_PublishFailureKeepsDecision(t *testing.T) {
	f := newFixture(t)
	f.pub.err = errors.New("broker down")

	d, eventID, err := f.access(nil).Authorize(context.Background(), f.point.ID, "0000", f.clock.Now())
	require.NoError(t, err)
	assert.False(t, d.Granted)
	assert.NotZero(t, eventID)
	assert.Len(t, f.events.Events(), 1)
}

// ── Decide ───────────────────────────────────────────────────────────────────

func TestDecide_Response(t *testing.T) {
	f := newFixture(t)
	_, err := f.codes.AddPointCode(store.PointCode{PointID: f.point.ID, Name: "Guest", Code: "2468", Enabled: true})
	require.NoError(t, err)

	resp, err := f.access(nil).Decide(context.Background(), types.AccessRequest{PointID: f.point.ID, Code: "2468"})
	require.NoError(t, err)

	assert.True(t, resp.Granted)
	assert.Equal(t, types.SourcePointCode, resp.Source)
	assert.Equal(t, "Guest", resp.CodeName)
	assert.Equal(t, f.point.ID, resp.PointID)
	assert.Equal(t, f.events.Events()[0].ID, resp.EventID)
	assert.NotEmpty(t, resp.ServerTime)
}

func TestDecide_InvalidPointID_NoEvent(t *testing.T) {
	f := newFixture(t)

	_, err := f.access(nil).Decide(context.Background(), types.AccessRequest{PointID: 0, Code: "1234"})
	require.ErrorIs(t, err, service.ErrInvalidPointID)
	assert.Empty(t, f.events.Events())
}

func TestDecide_ConcurrentRequestsRecordDistinctEvents(t *testing.T) {
	f := newFixture(t)
	svc := f.access(nil)

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = map[int64]bool{}
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := svc.Decide(context.Background(), types.AccessRequest{PointID: f.point.ID, Code: "1"})
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			ids[resp.EventID] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, ids, 50)
	assert.Len(t, f.events.Events(), 50)
}
