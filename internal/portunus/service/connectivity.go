package service

import (
	"time"

	"github.com/BrandonDHaskell/Portunus/keypad/internal/portunus/types"
)

const (
	LiveWindow  = 5 * time.Second
	DyingWindow = 10 * time.Second
)

// Classify derives a point's connectivity from its newest heartbeat.  A nil
// heartbeat, one older than DyingWindow, or one stamped in the future is
// Dead.
func Classify(heartbeatAt *time.Time, now time.Time) types.Connectivity {
	if heartbeatAt == nil {
		return types.Dead
	}
	d := now.Sub(*heartbeatAt)
	switch {
	case d < 0:
		return types.Dead
	case d < LiveWindow:
		return types.Live
	case d < DyingWindow:
		return types.Dying
	default:
		return types.Dead
	}
}
