package types

// Connectivity is the derived liveness of a point.  It is computed from the
// last heartbeat on every read and never persisted.
type Connectivity string

const (
	Live  Connectivity = "Live"
	Dying Connectivity = "Dying"
	Dead  Connectivity = "Dead"
)
