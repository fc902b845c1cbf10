package types

import (
	"errors"
	"fmt"
)

const (
	MinCodeLen = 3
	MaxCodeLen = 8
)

var ErrInvalidCode = errors.New("invalid code")

// ValidateCode enforces the format of operator-entered codes.  Device
// reported snapshots are never passed through it.
func ValidateCode(code string) error {
	if len(code) < MinCodeLen || len(code) > MaxCodeLen {
		return fmt.Errorf("%w: must have %d-%d digits", ErrInvalidCode, MinCodeLen, MaxCodeLen)
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return fmt.Errorf("%w: must contain only digits", ErrInvalidCode)
		}
	}
	return nil
}
