package types

import "time"

// HeartbeatRequest is the device report for one point.  Codes is the set of
// codes currently enrolled on the point hardware, as the device sees it.
// A nil Codes means the field was absent; an empty slice means "no codes".
type HeartbeatRequest struct {
	PointID int64    `json:"point_id"`
	Codes   []string `json:"codes"`
}

// HeartbeatResponse echoes the state the server recorded so a device can
// detect a mismatch with what it sent.
type HeartbeatResponse struct {
	OK          bool     `json:"ok"`
	PointID     int64    `json:"point_id"`
	Codes       []string `json:"codes"`
	HeartbeatAt string   `json:"heartbeat_at"`
	ServerTime  string   `json:"server_time"`
}

// LivenessResponse answers a device liveness probe.  HeartbeatAt is empty
// when the point has never reported.
type LivenessResponse struct {
	PointID     int64        `json:"point_id"`
	Status      Connectivity `json:"status"`
	HeartbeatAt string       `json:"heartbeat_at,omitempty"`
	ServerTime  string       `json:"server_time"`
}

// HeartbeatAck is the snapshot the server recorded for one heartbeat.
type HeartbeatAck struct {
	PointID     int64
	Codes       []string
	HeartbeatAt time.Time
}

// LivenessRequest is the RPC form of a liveness probe.
type LivenessRequest struct {
	PointID int64 `json:"point_id"`
}
