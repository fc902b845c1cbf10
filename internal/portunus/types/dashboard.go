package types

// DashboardRow is one point in the consumer dashboard feed.
type DashboardRow struct {
	PointID         int64        `json:"point_id"`
	HubID           int64        `json:"hub_id"`
	HubName         string       `json:"hub_name"`
	PointName       string       `json:"point_name"`
	Connectivity    Connectivity `json:"connectivity"`
	HubConnectivity Connectivity `json:"hub_connectivity"`
	HeartbeatAt     string       `json:"heartbeat_at,omitempty"`
}

// EventView is one access event as shown in the activity feed.
type EventView struct {
	ID        int64  `json:"id"`
	At        string `json:"at"`
	Access    string `json:"access"`
	Granted   bool   `json:"granted"`
	Code      string `json:"code"`
	PointID   int64  `json:"point_id"`
	PointName string `json:"point_name,omitempty"`
	UserID    *int64 `json:"user_id,omitempty"`
	UserName  string `json:"user_name,omitempty"`
}
