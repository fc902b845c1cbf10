package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	dbpkg "github.com/BrandonDHaskell/Portunus/keypad/internal/db"
	"github.com/BrandonDHaskell/Portunus/keypad/internal/portunus/store"
)

type AccessEventStore struct {
	reader *sql.DB
	writer *dbpkg.Worker
}

func NewAccessEventStore(reader *sql.DB, writer *dbpkg.Worker) *AccessEventStore {
	return &AccessEventStore{reader: reader, writer: writer}
}

func (s *AccessEventStore) RecordEvent(ctx context.Context, rec store.AccessEventRecord) (int64, error) {
	if rec.At.IsZero() {
		rec.At = time.Now().UTC()
	}

	var codeName any
	if rec.CodeName != "" {
		codeName = rec.CodeName
	}

	var id int64
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
INSERT INTO access_events(point_id, at_ms, access, code, code_name, user_id)
VALUES (?, ?, ?, ?, ?, ?);
`, rec.PointID, rec.At.UTC().UnixMilli(), rec.Access, rec.Code, codeName, nullableInt64(rec.UserID))
		if err != nil {
			return fmt.Errorf("insert: %w", err)
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, wrapErr("RecordEvent", err)
	}
	return id, nil
}

func (s *AccessEventStore) ListEvents(ctx context.Context, q store.EventQuery) ([]store.AccessEventRecord, error) {
	if len(q.PointIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(q.PointIDs)), ",")
	args := make([]any, 0, len(q.PointIDs)+1)
	for _, id := range q.PointIDs {
		args = append(args, id)
	}
	args = append(args, q.ClampLimit())

	rows, err := s.reader.QueryContext(ctx, `
SELECT id, point_id, at_ms, access, code, code_name, user_id
FROM access_events
WHERE point_id IN (`+placeholders+`)
ORDER BY at_ms DESC, id DESC
LIMIT ?;
`, args...)
	if err != nil {
		return nil, wrapErr("ListEvents", err)
	}
	defer rows.Close()

	var out []store.AccessEventRecord
	for rows.Next() {
		var (
			rec      store.AccessEventRecord
			atMs     int64
			codeName sql.NullString
			userID   sql.NullInt64
		)
		if err := rows.Scan(&rec.ID, &rec.PointID, &atMs, &rec.Access, &rec.Code, &codeName, &userID); err != nil {
			return nil, wrapErr("ListEvents scan", err)
		}
		rec.At = time.UnixMilli(atMs).UTC()
		rec.CodeName = codeName.String
		if userID.Valid {
			id := userID.Int64
			rec.UserID = &id
		}
		out = append(out, rec)
	}
	return out, wrapErr("ListEvents rows", rows.Err())
}
