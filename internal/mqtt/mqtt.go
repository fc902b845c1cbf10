// Package mqtt fans recorded access events out to an MQTT broker.
package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/BrandonDHaskell/Portunus/keypad/internal/portunus/store"
	"github.com/BrandonDHaskell/Portunus/keypad/internal/portunus/types"
)

// TopicPrefix is followed by the point id and "/access".
const TopicPrefix = "portunus/points/"

func AccessTopic(pointID int64) string {
	return fmt.Sprintf("%s%d/access", TopicPrefix, pointID)
}

// Payload is the JSON body of an access event message.
type Payload struct {
	EventID  int64  `json:"event_id"`
	PointID  int64  `json:"point_id"`
	At       string `json:"at"`
	Access   string `json:"access"`
	Granted  bool   `json:"granted"`
	CodeName string `json:"code_name,omitempty"`
	UserID   *int64 `json:"user_id,omitempty"`
}

// FormatPayload renders ev.  The presented code is left out: subscribers
// see who opened a point, not what was typed.
func FormatPayload(ev store.AccessEventRecord) ([]byte, error) {
	return json.Marshal(Payload{
		EventID:  ev.ID,
		PointID:  ev.PointID,
		At:       ev.At.UTC().Format(time.RFC3339Nano),
		Access:   ev.Access,
		Granted:  types.IsGrantedAccess(ev.Access),
		CodeName: ev.CodeName,
		UserID:   ev.UserID,
	})
}
