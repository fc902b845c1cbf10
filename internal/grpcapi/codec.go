package grpcapi

import (
	"github.com/BrandonDHaskell/Portunus/keypad/internal/portunus/wire"
)

// CodecName is the gRPC content-subtype of device messages.
const CodecName = "portunus-wire"

// Codec carries the device message types over gRPC in protobuf binary
// form without generated message code.
type Codec struct{}

func (Codec) Marshal(v any) ([]byte, error)      { return wire.Marshal(v) }
func (Codec) Unmarshal(data []byte, v any) error { return wire.Unmarshal(data, v) }
func (Codec) Name() string                       { return CodecName }
