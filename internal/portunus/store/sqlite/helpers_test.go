package sqlite_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/BrandonDHaskell/Portunus/keypad/internal/db"
	"github.com/BrandonDHaskell/Portunus/keypad/internal/portunus/store"
	sqlitestore "github.com/BrandonDHaskell/Portunus/keypad/internal/portunus/store/sqlite"
)

// openTestDB returns an in-memory SQLite connection with the same PRAGMAs
// and schema as production.  The connection is closed automatically when the
// test finishes.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	// Each test gets its own named in-memory database; shared cache keeps it
	// alive while the pool holds its single connection.
	dsn := fmt.Sprintf(
		"file:test_%s?mode=memory&cache=shared&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)",
		t.Name(),
	)

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("openTestDB: sql.Open: %v", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	if err := conn.Ping(); err != nil {
		conn.Close()
		t.Fatalf("openTestDB: ping: %v", err)
	}

	if err := db.Migrate(context.Background(), conn); err != nil {
		conn.Close()
		t.Fatalf("openTestDB: migrate: %v", err)
	}

	t.Cleanup(func() { conn.Close() })
	return conn
}

// newTestWriter returns a db.Worker backed by conn.  The worker is closed
// automatically when the test finishes.
func newTestWriter(t *testing.T, conn *sql.DB) *db.Worker {
	t.Helper()

	w := db.NewWorker(conn)
	t.Cleanup(func() { w.Close() })
	return w
}

// seedPoint creates a hub owned by accountID with one point and returns both.
func seedPoint(t *testing.T, ps *sqlitestore.PointStore, accountID int64, hubName, pointName string) (store.Hub, store.Point) {
	t.Helper()

	ctx := context.Background()
	h, err := ps.AddHub(ctx, store.Hub{AccountID: accountID, Name: hubName})
	if err != nil {
		t.Fatalf("seedPoint: AddHub: %v", err)
	}
	p, err := ps.AddPoint(ctx, store.Point{HubID: h.ID, Name: pointName})
	if err != nil {
		t.Fatalf("seedPoint: AddPoint: %v", err)
	}
	return h, p
}
