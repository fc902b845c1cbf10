package service

import (
	"errors"
	"fmt"

	"github.com/BrandonDHaskell/Portunus/keypad/internal/portunus/store"
)

var (
	ErrPointNotFound    = errors.New("point not found")
	ErrScopeNotFound    = errors.New("hub or point not found")
	ErrInvalidPointID   = errors.New("point_id must be a positive integer")
	ErrMissingCodes     = errors.New("codes is required")
	ErrInvalidScope     = errors.New("exactly one of hub_id or point_id is required")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrConflict         = errors.New("concurrent update conflict")
)

// IsValidation reports whether err was caused by a malformed request.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidPointID) ||
		errors.Is(err, ErrMissingCodes) ||
		errors.Is(err, ErrInvalidScope)
}

// IsNotFound reports whether err names a point, hub or scope that does not
// exist for the caller.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPointNotFound) || errors.Is(err, ErrScopeNotFound)
}

// storeErr lifts a store error kind into the service error kinds, keeping
// the original in the chain.
func storeErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrUnavailable):
		return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
	case errors.Is(err, store.ErrConflict):
		return fmt.Errorf("%s: %w: %w", op, ErrConflict, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
