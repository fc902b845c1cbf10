package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/BrandonDHaskell/Portunus/keypad/internal/portunus/store"
	sqlitestore "github.com/BrandonDHaskell/Portunus/keypad/internal/portunus/store/sqlite"
	"github.com/BrandonDHaskell/Portunus/keypad/internal/portunus/types"
)

// ═══════════════════════════════════════════════════════════════════════════
// RecordEvent: column values
// ═══════════════════════════════════════════════════════════════════════════

func TestAccessEventStore_RecordEvent_ColumnsCorrect(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	as := sqlitestore.NewAccessEventStore(conn, w)
	ctx := context.Background()

	now := time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC)
	userID := int64(42)

	id, err := as.RecordEvent(ctx, store.AccessEventRecord{
		PointID: 7,
		At:      now,
		Access:  types.AccessGrantedUser,
		Code:    "4321",
		UserID:  &userID,
	})
	if err != nil {
		t.Fatalf("RecordEvent: %v", err)
	}
	if id <= 0 {
		t.Fatalf("expected positive id, got %d", id)
	}

	var (
		access string
		code   string
		atMs   int64
		uid    int64
	)
	err = conn.QueryRowContext(ctx,
		`SELECT access, code, at_ms, user_id FROM access_events WHERE id = ?`, id,
	).Scan(&access, &code, &atMs, &uid)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if access != types.AccessGrantedUser {
		t.Errorf("expected access=%s, got %q", types.AccessGrantedUser, access)
	}
	if code != "4321" {
		t.Errorf("expected code=4321, got %q", code)
	}
	if atMs != now.UnixMilli() {
		t.Errorf("expected at_ms=%d, got %d", now.UnixMilli(), atMs)
	}
	if uid != 42 {
		t.Errorf("expected user_id=42, got %d", uid)
	}
}

func TestAccessEventStore_RecordEvent_VerbatimCode(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	as := sqlitestore.NewAccessEventStore(conn, w)
	ctx := context.Background()

	for _, code := range []string{"", "  12ab ", "🔑"} {
		if _, err := as.RecordEvent(ctx, store.AccessEventRecord{PointID: 1, Access: types.AccessDenied, Code: code}); err != nil {
			t.Fatalf("RecordEvent(%q): %v", code, err)
		}
	}

	evs, err := as.ListEvents(ctx, store.EventQuery{PointIDs: []int64{1}})
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	seen := map[string]bool{}
	for _, ev := range evs {
		seen[ev.Code] = true
		if ev.UserID != nil {
			t.Errorf("expected nil user_id for denied event, got %d", *ev.UserID)
		}
	}
	for _, code := range []string{"", "  12ab ", "🔑"} {
		if !seen[code] {
			t.Errorf("code %q not stored verbatim", code)
		}
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// ListEvents: ordering, scope, limit
// ═══════════════════════════════════════════════════════════════════════════

func TestAccessEventStore_ListEvents_OrderAndScope(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	as := sqlitestore.NewAccessEventStore(conn, w)
	ctx := context.Background()

	at := time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC)
	record := func(pointID int64, at time.Time, code string) int64 {
		t.Helper()
		id, err := as.RecordEvent(ctx, store.AccessEventRecord{PointID: pointID, At: at, Access: types.AccessDenied, Code: code})
		if err != nil {
			t.Fatalf("RecordEvent: %v", err)
		}
		return id
	}

	older := record(1, at.Add(-time.Minute), "a")
	tie1 := record(1, at, "b")
	tie2 := record(2, at, "c")
	record(3, at.Add(time.Minute), "out of scope")

	evs, err := as.ListEvents(ctx, store.EventQuery{PointIDs: []int64{1, 2}})
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(evs) != 3 {
		t.Fatalf("expected 3 events, got %d", len(evs))
	}
	want := []int64{tie2, tie1, older}
	for i, ev := range evs {
		if ev.ID != want[i] {
			t.Errorf("position %d: expected id %d, got %d", i, want[i], ev.ID)
		}
	}

	limited, err := as.ListEvents(ctx, store.EventQuery{PointIDs: []int64{1, 2}, Limit: 1})
	if err != nil {
		t.Fatalf("ListEvents limited: %v", err)
	}
	if len(limited) != 1 || limited[0].ID != tie2 {
		t.Errorf("expected only newest event, got %+v", limited)
	}
}

func TestAccessEventStore_ListEvents_EmptyScope(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	as := sqlitestore.NewAccessEventStore(conn, w)

	evs, err := as.ListEvents(context.Background(), store.EventQuery{})
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(evs) != 0 {
		t.Errorf("expected no events, got %d", len(evs))
	}
}
