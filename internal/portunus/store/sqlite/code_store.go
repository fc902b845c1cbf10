package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dbpkg "github.com/BrandonDHaskell/Portunus/keypad/internal/db"
	"github.com/BrandonDHaskell/Portunus/keypad/internal/portunus/store"
	"github.com/BrandonDHaskell/Portunus/keypad/internal/portunus/types"
)

// CodeStore reads point codes and account users for authorization.  The
// write methods exist for seeding and tests; they validate codes the same
// way the admin surface does.
type CodeStore struct {
	reader *sql.DB
	writer *dbpkg.Worker
}

func NewCodeStore(reader *sql.DB, writer *dbpkg.Worker) *CodeStore {
	return &CodeStore{reader: reader, writer: writer}
}

func (s *CodeStore) FindPointCode(ctx context.Context, pointID int64, code string) (store.PointCode, error) {
	var pc store.PointCode
	var enabled int
	err := s.reader.QueryRowContext(ctx, `
SELECT id, point_id, name, code, enabled
FROM point_codes
WHERE point_id = ? AND code = ? AND enabled = 1
ORDER BY id ASC
LIMIT 1;
`, pointID, code).Scan(&pc.ID, &pc.PointID, &pc.Name, &pc.Code, &enabled)
	if err != nil {
		return store.PointCode{}, wrapErr("FindPointCode", err)
	}
	pc.Enabled = enabled == 1
	return pc, nil
}

func (s *CodeStore) FindGrantedUser(ctx context.Context, pointID int64, code string) (store.AccessUser, error) {
	row := s.reader.QueryRowContext(ctx, `
SELECT u.id, u.account_id, u.name, u.description, u.code, u.deleted_at_ms
FROM access_users u
JOIN access_user_points g ON g.user_id = u.id
WHERE g.point_id = ? AND u.code = ? AND u.deleted_at_ms IS NULL
ORDER BY u.id ASC
LIMIT 1;
`, pointID, code)
	u, err := scanUser(row)
	if err != nil {
		return store.AccessUser{}, wrapErr("FindGrantedUser", err)
	}
	return u, nil
}

func (s *CodeStore) GetUser(ctx context.Context, userID int64) (store.AccessUser, error) {
	row := s.reader.QueryRowContext(ctx, `
SELECT id, account_id, name, description, code, deleted_at_ms
FROM access_users
WHERE id = ?;
`, userID)
	u, err := scanUser(row)
	if err != nil {
		return store.AccessUser{}, wrapErr("GetUser", err)
	}
	return u, nil
}

func scanUser(row *sql.Row) (store.AccessUser, error) {
	var u store.AccessUser
	var deleted sql.NullInt64
	if err := row.Scan(&u.ID, &u.AccountID, &u.Name, &u.Description, &u.Code, &deleted); err != nil {
		return store.AccessUser{}, err
	}
	if deleted.Valid {
		t := time.UnixMilli(deleted.Int64).UTC()
		u.DeletedAt = &t
	}
	return u, nil
}

func (s *CodeStore) AddPointCode(ctx context.Context, pc store.PointCode) (store.PointCode, error) {
	if err := types.ValidateCode(pc.Code); err != nil {
		return store.PointCode{}, err
	}
	nowMs := time.Now().UTC().UnixMilli()
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
INSERT INTO point_codes(point_id, name, code, enabled, created_at_ms, updated_at_ms)
VALUES (?, ?, ?, ?, ?, ?);
`, pc.PointID, pc.Name, pc.Code, boolInt(pc.Enabled), nowMs, nowMs)
		if err != nil {
			return fmt.Errorf("insert point code: %w", err)
		}
		pc.ID, err = res.LastInsertId()
		return err
	})
	return pc, wrapErr("AddPointCode", err)
}

func (s *CodeStore) SetPointCodeEnabled(ctx context.Context, id int64, enabled bool) error {
	return s.exec(ctx, "SetPointCodeEnabled", `
UPDATE point_codes SET enabled = ?, updated_at_ms = ? WHERE id = ?;
`, boolInt(enabled), time.Now().UTC().UnixMilli(), id)
}

func (s *CodeStore) AddUser(ctx context.Context, u store.AccessUser) (store.AccessUser, error) {
	if err := types.ValidateCode(u.Code); err != nil {
		return store.AccessUser{}, err
	}
	nowMs := time.Now().UTC().UnixMilli()
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
INSERT INTO access_users(account_id, name, description, code, created_at_ms, updated_at_ms)
VALUES (?, ?, ?, ?, ?, ?);
`, u.AccountID, u.Name, u.Description, u.Code, nowMs, nowMs)
		if err != nil {
			return fmt.Errorf("insert user: %w", err)
		}
		u.ID, err = res.LastInsertId()
		return err
	})
	return u, wrapErr("AddUser", err)
}

// GrantPoint is idempotent; a missing user or point is store.ErrNotFound.
func (s *CodeStore) GrantPoint(ctx context.Context, userID, pointID int64) error {
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
INSERT OR IGNORE INTO access_user_points(user_id, point_id) VALUES (?, ?);
`, userID, pointID)
		return err
	})
	return wrapErr("GrantPoint", err)
}

func (s *CodeStore) SoftDeleteUser(ctx context.Context, userID int64, at time.Time) error {
	atMs := at.UTC().UnixMilli()
	return s.exec(ctx, "SoftDeleteUser", `
UPDATE access_users SET deleted_at_ms = ?, updated_at_ms = ? WHERE id = ?;
`, atMs, atMs, userID)
}

// exec runs a single-statement write and reports store.ErrNotFound when it
// touched no rows.
func (s *CodeStore) exec(ctx context.Context, op, query string, args ...any) error {
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return store.ErrNotFound
		}
		return nil
	})
	return wrapErr(op, err)
}
