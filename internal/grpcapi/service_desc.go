package grpcapi

import (
	"context"

	"google.golang.org/grpc"

	"github.com/BrandonDHaskell/Portunus/keypad/internal/portunus/types"
)

const ServiceName = "portunus.v1.DeviceService"

const (
	methodHeartbeat = "/" + ServiceName + "/Heartbeat"
	methodLiveness  = "/" + ServiceName + "/Liveness"
	methodAccess    = "/" + ServiceName + "/Access"
)

// DeviceServer is the device-facing RPC surface.
type DeviceServer interface {
	Heartbeat(context.Context, *types.HeartbeatRequest) (*types.HeartbeatResponse, error)
	Liveness(context.Context, *types.LivenessRequest) (*types.LivenessResponse, error)
	Access(context.Context, *types.AccessRequest) (*types.AccessResponse, error)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DeviceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Heartbeat", Handler: unary(methodHeartbeat, DeviceServer.Heartbeat)},
		{MethodName: "Liveness", Handler: unary(methodLiveness, DeviceServer.Liveness)},
		{MethodName: "Access", Handler: unary(methodAccess, DeviceServer.Access)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "portunus/v1/device.proto",
}

func RegisterDeviceServer(s grpc.ServiceRegistrar, srv DeviceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// unary adapts a typed DeviceServer method to a grpc.MethodDesc handler.
func unary[Req, Resp any](
	fullMethod string,
	call func(DeviceServer, context.Context, *Req) (*Resp, error),
) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(DeviceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(DeviceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// DeviceClient calls DeviceService with the device codec.
type DeviceClient struct {
	cc grpc.ClientConnInterface
}

func NewDeviceClient(cc grpc.ClientConnInterface) *DeviceClient {
	return &DeviceClient{cc: cc}
}

func (c *DeviceClient) Heartbeat(ctx context.Context, in *types.HeartbeatRequest, opts ...grpc.CallOption) (*types.HeartbeatResponse, error) {
	out := new(types.HeartbeatResponse)
	return out, c.invoke(ctx, methodHeartbeat, in, out, opts)
}

func (c *DeviceClient) Liveness(ctx context.Context, in *types.LivenessRequest, opts ...grpc.CallOption) (*types.LivenessResponse, error) {
	out := new(types.LivenessResponse)
	return out, c.invoke(ctx, methodLiveness, in, out, opts)
}

func (c *DeviceClient) Access(ctx context.Context, in *types.AccessRequest, opts ...grpc.CallOption) (*types.AccessResponse, error) {
	out := new(types.AccessResponse)
	return out, c.invoke(ctx, methodAccess, in, out, opts)
}

func (c *DeviceClient) invoke(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.ForceCodec(Codec{})}, opts...)
	return c.cc.Invoke(ctx, method, in, out, opts...)
}
