// Package grpcapi exposes the device operations over gRPC.
package grpcapi

import (
	"context"
	"errors"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/BrandonDHaskell/Portunus/keypad/internal/portunus/service"
	"github.com/BrandonDHaskell/Portunus/keypad/internal/portunus/types"
)

type Dependencies struct {
	Logger           *zap.Logger
	HeartbeatService *service.HeartbeatService
	AccessService    *service.AccessService
}

// Server implements DeviceServer on top of the services.
type Server struct {
	grpc       *grpc.Server
	logger     *zap.Logger
	heartbeats *service.HeartbeatService
	access     *service.AccessService
}

func NewServer(d Dependencies) *Server {
	s := &Server{
		logger:     d.Logger,
		heartbeats: d.HeartbeatService,
		access:     d.AccessService,
	}
	s.grpc = grpc.NewServer(
		grpc.ForceServerCodec(Codec{}),
		grpc.ChainUnaryInterceptor(s.logUnary),
	)
	RegisterDeviceServer(s.grpc, s)
	return s
}

func (s *Server) Serve(lis net.Listener) error { return s.grpc.Serve(lis) }

// Shutdown stops gracefully, or forcibly once ctx is done.
func (s *Server) Shutdown(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.grpc.Stop()
	}
}

func (s *Server) Heartbeat(ctx context.Context, in *types.HeartbeatRequest) (*types.HeartbeatResponse, error) {
	resp, err := s.heartbeats.Record(ctx, *in)
	if err != nil {
		return nil, toStatus(err)
	}
	return &resp, nil
}

func (s *Server) Liveness(ctx context.Context, in *types.LivenessRequest) (*types.LivenessResponse, error) {
	resp, err := s.heartbeats.Liveness(ctx, in.PointID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &resp, nil
}

func (s *Server) Access(ctx context.Context, in *types.AccessRequest) (*types.AccessResponse, error) {
	resp, err := s.access.Decide(ctx, *in)
	if err != nil {
		return nil, toStatus(err)
	}
	return &resp, nil
}

func toStatus(err error) error {
	switch {
	case service.IsValidation(err):
		return status.Error(codes.InvalidArgument, err.Error())
	case service.IsNotFound(err):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, service.ErrConflict):
		return status.Error(codes.Aborted, err.Error())
	case errors.Is(err, service.ErrStoreUnavailable):
		return status.Error(codes.Unavailable, "storage temporarily unavailable")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, "unexpected server error")
	}
}

func (s *Server) logUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	code := status.Code(err)

	fields := []zap.Field{
		zap.String("method", info.FullMethod),
		zap.String("code", code.String()),
		zap.Duration("duration", time.Since(start)),
	}
	if code == codes.Internal || code == codes.Unavailable {
		s.logger.Warn("grpc request failed", fields...)
	} else {
		s.logger.Info("grpc request", fields...)
	}
	return resp, err
}
