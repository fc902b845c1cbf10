package store

import "context"

type Hub struct {
	ID          int64
	AccountID   int64
	Name        string
	Description string
}

type Point struct {
	ID          int64
	HubID       int64
	Name        string
	Description string
	Position    int
}

// PointSummary is a point joined with its hub, as listed on the dashboard.
type PointSummary struct {
	Point
	HubName string
}

// PointStore resolves hubs and points.  Creating and editing them belongs to
// the admin surface; this core only reads.
type PointStore interface {
	GetHub(ctx context.Context, hubID int64) (Hub, error)
	GetPoint(ctx context.Context, pointID int64) (Point, error)
	// ListPointsByHub returns the hub's points ordered by position.
	ListPointsByHub(ctx context.Context, hubID int64) ([]Point, error)
	// ListPointsByAccount returns every point of the account's hubs ordered
	// by hub name, then point name.
	ListPointsByAccount(ctx context.Context, accountID int64) ([]PointSummary, error)
}
