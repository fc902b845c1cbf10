package store

import (
	"context"
	"time"
)

// PointCode is an operator-managed code bound to one point.
type PointCode struct {
	ID      int64
	PointID int64
	Name    string
	Code    string
	Enabled bool
}

// AccessUser is an operator-managed code bound to an account and granted to
// a set of points.
type AccessUser struct {
	ID          int64
	AccountID   int64
	Name        string
	Description string
	Code        string
	DeletedAt   *time.Time
}

// CodeStore is the authoritative code registry consumed by authorization.
type CodeStore interface {
	// FindPointCode returns an enabled code on the point equal to code.
	FindPointCode(ctx context.Context, pointID int64, code string) (PointCode, error)
	// FindGrantedUser returns a non-deleted user with the given code that is
	// granted the point.
	FindGrantedUser(ctx context.Context, pointID int64, code string) (AccessUser, error)
	// GetUser returns a user by id, including soft-deleted users.
	GetUser(ctx context.Context, userID int64) (AccessUser, error)
}
