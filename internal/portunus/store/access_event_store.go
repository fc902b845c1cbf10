package store

import (
	"context"
	"time"
)

// AccessEventRecord captures one authorization decision for the audit log.
// Code is the presented string verbatim.
type AccessEventRecord struct {
	ID       int64
	PointID  int64
	At       time.Time
	Access   string
	Code     string
	CodeName string
	UserID   *int64
}

// EventQuery selects events for a set of points.  An empty PointIDs matches
// nothing.
type EventQuery struct {
	PointIDs []int64
	Limit    int
}

const (
	DefaultEventLimit = 50
	MaxEventLimit     = 500
)

// ClampLimit applies the default and maximum page size.
func (q EventQuery) ClampLimit() int {
	switch {
	case q.Limit <= 0:
		return DefaultEventLimit
	case q.Limit > MaxEventLimit:
		return MaxEventLimit
	default:
		return q.Limit
	}
}

// AccessEventStore persists access decisions as an append-only audit log.
// RecordEvent returns the assigned id; ids increase monotonically.
// ListEvents orders by At descending, then id descending.
type AccessEventStore interface {
	RecordEvent(ctx context.Context, rec AccessEventRecord) (int64, error)
	ListEvents(ctx context.Context, q EventQuery) ([]AccessEventRecord, error)
}
