// Package wire encodes device messages in the protobuf binary format.
//
// Field numbers:
//
//	HeartbeatRequest   1 point_id  2 codes (repeated)
//	HeartbeatResponse  1 ok  2 point_id  3 codes  4 heartbeat_at  5 server_time
//	LivenessRequest    1 point_id
//	LivenessResponse   1 point_id  2 status  3 heartbeat_at  4 server_time
//	AccessRequest      1 point_id  2 code
//	AccessResponse     1 granted  2 source  3 event_id  4 point_id
//	                   5 server_time  6 code_name  7 user_id
//
// Protobuf cannot tell an absent repeated field from an empty one, so a
// decoded HeartbeatRequest always carries a non-nil Codes.
package wire

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/BrandonDHaskell/Portunus/keypad/internal/portunus/types"
)

const ContentType = "application/x-protobuf"

var ErrUnsupportedMessage = errors.New("wire: unsupported message type")

// Marshal encodes one of the device message types, by value or pointer.
func Marshal(v any) ([]byte, error) {
	switch m := v.(type) {
	case *types.HeartbeatRequest:
		return appendHeartbeatRequest(nil, m), nil
	case types.HeartbeatRequest:
		return appendHeartbeatRequest(nil, &m), nil
	case *types.HeartbeatResponse:
		return appendHeartbeatResponse(nil, m), nil
	case types.HeartbeatResponse:
		return appendHeartbeatResponse(nil, &m), nil
	case *types.LivenessRequest:
		return appendInt64(nil, 1, m.PointID), nil
	case types.LivenessRequest:
		return appendInt64(nil, 1, m.PointID), nil
	case *types.LivenessResponse:
		return appendLivenessResponse(nil, m), nil
	case types.LivenessResponse:
		return appendLivenessResponse(nil, &m), nil
	case *types.AccessRequest:
		return appendAccessRequest(nil, m), nil
	case types.AccessRequest:
		return appendAccessRequest(nil, &m), nil
	case *types.AccessResponse:
		return appendAccessResponse(nil, m), nil
	case types.AccessResponse:
		return appendAccessResponse(nil, &m), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedMessage, v)
	}
}

// Unmarshal decodes b into a pointer to one of the device message types.
// Unknown fields are skipped.
func Unmarshal(b []byte, v any) error {
	switch m := v.(type) {
	case *types.HeartbeatRequest:
		*m = types.HeartbeatRequest{Codes: []string{}}
		return decode(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
			switch num {
			case 1:
				return consumeInt64(typ, b, &m.PointID)
			case 2:
				return consumeRepeatedString(typ, b, &m.Codes)
			}
			return 0
		})
	case *types.HeartbeatResponse:
		*m = types.HeartbeatResponse{Codes: []string{}}
		return decode(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
			switch num {
			case 1:
				return consumeBool(typ, b, &m.OK)
			case 2:
				return consumeInt64(typ, b, &m.PointID)
			case 3:
				return consumeRepeatedString(typ, b, &m.Codes)
			case 4:
				return consumeString(typ, b, &m.HeartbeatAt)
			case 5:
				return consumeString(typ, b, &m.ServerTime)
			}
			return 0
		})
	case *types.LivenessRequest:
		*m = types.LivenessRequest{}
		return decode(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
			if num == 1 {
				return consumeInt64(typ, b, &m.PointID)
			}
			return 0
		})
	case *types.LivenessResponse:
		*m = types.LivenessResponse{}
		return decode(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
			switch num {
			case 1:
				return consumeInt64(typ, b, &m.PointID)
			case 2:
				var s string
				n := consumeString(typ, b, &s)
				m.Status = types.Connectivity(s)
				return n
			case 3:
				return consumeString(typ, b, &m.HeartbeatAt)
			case 4:
				return consumeString(typ, b, &m.ServerTime)
			}
			return 0
		})
	case *types.AccessRequest:
		*m = types.AccessRequest{}
		return decode(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
			switch num {
			case 1:
				return consumeInt64(typ, b, &m.PointID)
			case 2:
				return consumeString(typ, b, &m.Code)
			}
			return 0
		})
	case *types.AccessResponse:
		*m = types.AccessResponse{}
		return decode(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
			switch num {
			case 1:
				return consumeBool(typ, b, &m.Granted)
			case 2:
				var s string
				n := consumeString(typ, b, &s)
				m.Source = types.AccessSource(s)
				return n
			case 3:
				return consumeInt64(typ, b, &m.EventID)
			case 4:
				return consumeInt64(typ, b, &m.PointID)
			case 5:
				return consumeString(typ, b, &m.ServerTime)
			case 6:
				return consumeString(typ, b, &m.CodeName)
			case 7:
				var id int64
				n := consumeInt64(typ, b, &id)
				if n > 0 {
					m.UserID = &id
				}
				return n
			}
			return 0
		})
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedMessage, v)
	}
}

func appendHeartbeatRequest(b []byte, m *types.HeartbeatRequest) []byte {
	b = appendInt64(b, 1, m.PointID)
	for _, c := range m.Codes {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendString(b, c)
	}
	return b
}

func appendHeartbeatResponse(b []byte, m *types.HeartbeatResponse) []byte {
	b = appendBool(b, 1, m.OK)
	b = appendInt64(b, 2, m.PointID)
	for _, c := range m.Codes {
		b = protowire.AppendTag(b, 3, protowire.BytesType)
		b = protowire.AppendString(b, c)
	}
	b = appendString(b, 4, m.HeartbeatAt)
	return appendString(b, 5, m.ServerTime)
}

func appendLivenessResponse(b []byte, m *types.LivenessResponse) []byte {
	b = appendInt64(b, 1, m.PointID)
	b = appendString(b, 2, string(m.Status))
	b = appendString(b, 3, m.HeartbeatAt)
	return appendString(b, 4, m.ServerTime)
}

func appendAccessRequest(b []byte, m *types.AccessRequest) []byte {
	b = appendInt64(b, 1, m.PointID)
	return appendString(b, 2, m.Code)
}

func appendAccessResponse(b []byte, m *types.AccessResponse) []byte {
	b = appendBool(b, 1, m.Granted)
	b = appendString(b, 2, string(m.Source))
	b = appendInt64(b, 3, m.EventID)
	b = appendInt64(b, 4, m.PointID)
	b = appendString(b, 5, m.ServerTime)
	b = appendString(b, 6, m.CodeName)
	if m.UserID != nil {
		b = protowire.AppendTag(b, 7, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(*m.UserID))
	}
	return b
}

// Scalars follow proto3 rules: zero values are omitted.

func appendInt64(b []byte, num protowire.Number, v int64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(v))
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeBool(v))
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

// fieldFunc consumes the value of one field and returns the bytes used, 0
// to skip the field, or a negative protowire error code.
type fieldFunc func(num protowire.Number, typ protowire.Type, b []byte) int

func decode(b []byte, field fieldFunc) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("wire: %w", protowire.ParseError(n))
		}
		b = b[n:]

		m := field(num, typ, b)
		if m == 0 {
			m = protowire.ConsumeFieldValue(num, typ, b)
		}
		if m < 0 {
			return fmt.Errorf("wire: field %d: %w", num, protowire.ParseError(m))
		}
		b = b[m:]
	}
	return nil
}

func consumeInt64(typ protowire.Type, b []byte, dst *int64) int {
	if typ != protowire.VarintType {
		return 0
	}
	v, n := protowire.ConsumeVarint(b)
	if n > 0 {
		*dst = int64(v)
	}
	return n
}

func consumeBool(typ protowire.Type, b []byte, dst *bool) int {
	if typ != protowire.VarintType {
		return 0
	}
	v, n := protowire.ConsumeVarint(b)
	if n > 0 {
		*dst = protowire.DecodeBool(v)
	}
	return n
}

func consumeString(typ protowire.Type, b []byte, dst *string) int {
	if typ != protowire.BytesType {
		return 0
	}
	v, n := protowire.ConsumeString(b)
	if n > 0 {
		*dst = v
	}
	return n
}

func consumeRepeatedString(typ protowire.Type, b []byte, dst *[]string) int {
	if typ != protowire.BytesType {
		return 0
	}
	v, n := protowire.ConsumeString(b)
	if n > 0 {
		*dst = append(*dst, v)
	}
	return n
}
