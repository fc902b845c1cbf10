package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	dbpkg "github.com/BrandonDHaskell/Portunus/keypad/internal/db"
	"github.com/BrandonDHaskell/Portunus/keypad/internal/portunus/store"
)

// wrapErr annotates err with op and maps driver failures onto the store
// error kinds.
func wrapErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%s: %w", op, store.ErrNotFound)
	case isMissingReference(err):
		return fmt.Errorf("%s: %w: %w", op, store.ErrNotFound, err)
	case isUnavailable(err):
		return fmt.Errorf("%s: %w: %w", op, store.ErrUnavailable, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func isUnavailable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, dbpkg.ErrWorkerClosed) {
		return true
	}
	var se *moderncsqlite.Error
	if errors.As(err, &se) {
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED, sqlite3.SQLITE_IOERR,
			sqlite3.SQLITE_CANTOPEN, sqlite3.SQLITE_FULL:
			return true
		}
	}
	return false
}

func isMissingReference(err error) bool {
	var se *moderncsqlite.Error
	return errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// nullableInt64 maps a nil pointer onto SQL NULL.
func nullableInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}
