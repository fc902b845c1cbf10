package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dbpkg "github.com/BrandonDHaskell/Portunus/keypad/internal/db"
	"github.com/BrandonDHaskell/Portunus/keypad/internal/portunus/store"
)

type PointStore struct {
	reader *sql.DB
	writer *dbpkg.Worker
}

func NewPointStore(reader *sql.DB, writer *dbpkg.Worker) *PointStore {
	return &PointStore{reader: reader, writer: writer}
}

func (s *PointStore) GetHub(ctx context.Context, hubID int64) (store.Hub, error) {
	var h store.Hub
	err := s.reader.QueryRowContext(ctx, `
SELECT hub_id, account_id, name, description
FROM hubs
WHERE hub_id = ?;
`, hubID).Scan(&h.ID, &h.AccountID, &h.Name, &h.Description)
	if err != nil {
		return store.Hub{}, wrapErr("GetHub", err)
	}
	return h, nil
}

func (s *PointStore) GetPoint(ctx context.Context, pointID int64) (store.Point, error) {
	var p store.Point
	err := s.reader.QueryRowContext(ctx, `
SELECT point_id, hub_id, name, description, position
FROM points
WHERE point_id = ?;
`, pointID).Scan(&p.ID, &p.HubID, &p.Name, &p.Description, &p.Position)
	if err != nil {
		return store.Point{}, wrapErr("GetPoint", err)
	}
	return p, nil
}

func (s *PointStore) ListPointsByHub(ctx context.Context, hubID int64) ([]store.Point, error) {
	rows, err := s.reader.QueryContext(ctx, `
SELECT point_id, hub_id, name, description, position
FROM points
WHERE hub_id = ?
ORDER BY position ASC, point_id ASC;
`, hubID)
	if err != nil {
		return nil, wrapErr("ListPointsByHub", err)
	}
	defer rows.Close()

	var out []store.Point
	for rows.Next() {
		var p store.Point
		if err := rows.Scan(&p.ID, &p.HubID, &p.Name, &p.Description, &p.Position); err != nil {
			return nil, wrapErr("ListPointsByHub scan", err)
		}
		out = append(out, p)
	}
	return out, wrapErr("ListPointsByHub rows", rows.Err())
}

func (s *PointStore) ListPointsByAccount(ctx context.Context, accountID int64) ([]store.PointSummary, error) {
	rows, err := s.reader.QueryContext(ctx, `
SELECT p.point_id, p.hub_id, p.name, p.description, p.position, h.name
FROM points p
JOIN hubs h ON h.hub_id = p.hub_id
WHERE h.account_id = ?
ORDER BY h.name ASC, p.name ASC, p.point_id ASC;
`, accountID)
	if err != nil {
		return nil, wrapErr("ListPointsByAccount", err)
	}
	defer rows.Close()

	var out []store.PointSummary
	for rows.Next() {
		var ps store.PointSummary
		if err := rows.Scan(&ps.ID, &ps.HubID, &ps.Name, &ps.Description, &ps.Position, &ps.HubName); err != nil {
			return nil, wrapErr("ListPointsByAccount scan", err)
		}
		out = append(out, ps)
	}
	return out, wrapErr("ListPointsByAccount rows", rows.Err())
}

// AddHub inserts a hub and returns it with its assigned id.
func (s *PointStore) AddHub(ctx context.Context, h store.Hub) (store.Hub, error) {
	nowMs := time.Now().UTC().UnixMilli()
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
INSERT INTO hubs(account_id, name, description, created_at_ms, updated_at_ms)
VALUES (?, ?, ?, ?, ?);
`, h.AccountID, h.Name, h.Description, nowMs, nowMs)
		if err != nil {
			return fmt.Errorf("insert hub: %w", err)
		}
		h.ID, err = res.LastInsertId()
		return err
	})
	return h, wrapErr("AddHub", err)
}

// AddPoint inserts a point under an existing hub.
func (s *PointStore) AddPoint(ctx context.Context, p store.Point) (store.Point, error) {
	nowMs := time.Now().UTC().UnixMilli()
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
INSERT INTO points(hub_id, name, description, position, created_at_ms, updated_at_ms)
VALUES (?, ?, ?, ?, ?, ?);
`, p.HubID, p.Name, p.Description, p.Position, nowMs, nowMs)
		if err != nil {
			return fmt.Errorf("insert point: %w", err)
		}
		p.ID, err = res.LastInsertId()
		return err
	})
	return p, wrapErr("AddPoint", err)
}
