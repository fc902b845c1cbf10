package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SeedDev creates a demo installation for local development: one hub with a
// front door point, an enabled point code and a user granted the door.
// Re-running it is harmless.
func SeedDev(ctx context.Context, db *sql.DB, accountID int64) error {
	now := time.Now().UTC().UnixMilli()

	stmts := []struct {
		name string
		sql  string
		args []any
	}{
		{"hub", `
INSERT OR IGNORE INTO hubs(hub_id, account_id, name, description, created_at_ms, updated_at_ms)
VALUES (1, ?, 'Main Hub', 'Dev', ?, ?);`, []any{accountID, now, now}},
		{"point", `
INSERT OR IGNORE INTO points(point_id, hub_id, name, description, position, created_at_ms, updated_at_ms)
VALUES (1, 1, 'Front Door', 'Main entrance', 0, ?, ?);`, []any{now, now}},
		{"point code", `
INSERT OR IGNORE INTO point_codes(id, point_id, name, code, enabled, created_at_ms, updated_at_ms)
VALUES (1, 1, 'Installer', '123456', 1, ?, ?);`, []any{now, now}},
		{"user", `
INSERT OR IGNORE INTO access_users(id, account_id, name, description, code, created_at_ms, updated_at_ms)
VALUES (1, ?, 'Dev User', '', '4321', ?, ?);`, []any{accountID, now, now}},
		{"grant", `
INSERT OR IGNORE INTO access_user_points(user_id, point_id) VALUES (1, 1);`, nil},
	}

	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s.sql, s.args...); err != nil {
			return fmt.Errorf("seed %s: %w", s.name, err)
		}
	}
	return nil
}
