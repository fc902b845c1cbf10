package types

type AccessRequest struct {
	PointID int64  `json:"point_id"`
	Code    string `json:"code"`
}

// AccessResponse is returned to the presenting device.  Only Granted is
// actionable for a lock actuator; the rest is for audit and debugging.
type AccessResponse struct {
	Granted    bool         `json:"granted"`
	Source     AccessSource `json:"source,omitempty"`
	CodeName   string       `json:"code_name,omitempty"`
	UserID     *int64       `json:"user_id,omitempty"`
	EventID    int64        `json:"event_id"`
	PointID    int64        `json:"point_id"`
	ServerTime string       `json:"server_time"`
}

// AccessSource names the registry that matched a presented code.
type AccessSource string

const (
	SourceNone      AccessSource = ""
	SourcePointCode AccessSource = "point_code"
	SourceUser      AccessSource = "user"
)

// Decision is the outcome of one authorization attempt.
type Decision struct {
	Granted  bool
	Source   AccessSource
	CodeName string // set for SourcePointCode
	UserID   *int64 // set for SourceUser
}

func Denied() Decision { return Decision{} }

func GrantedByPointCode(name string) Decision {
	return Decision{Granted: true, Source: SourcePointCode, CodeName: name}
}

func GrantedByUser(userID int64) Decision {
	id := userID
	return Decision{Granted: true, Source: SourceUser, UserID: &id}
}

// Access is the value stored in an event's access column.
func (d Decision) Access() string {
	switch {
	case !d.Granted:
		return AccessDenied
	case d.Source == SourceUser:
		return AccessGrantedUser
	default:
		return AccessGrantedPointCode
	}
}

const (
	AccessDenied           = "denied"
	AccessGrantedPointCode = "granted_point_code"
	AccessGrantedUser      = "granted_user"
)

// IsGrantedAccess reports whether a stored access value records a grant.
func IsGrantedAccess(access string) bool {
	return access == AccessGrantedPointCode || access == AccessGrantedUser
}
