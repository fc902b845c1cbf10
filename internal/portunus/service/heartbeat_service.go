package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/BrandonDHaskell/Portunus/keypad/internal/portunus/store"
	"github.com/BrandonDHaskell/Portunus/keypad/internal/portunus/types"
)

// TelemetrySink receives every accepted heartbeat.  Writes must not block.
type TelemetrySink interface {
	WriteHeartbeat(pointID int64, codeCount int, at time.Time)
}

type HeartbeatService struct {
	cache     store.ConfigCache
	registry  *PointRegistry
	telemetry TelemetrySink
	logger    *zap.Logger
	now       func() time.Time
}

type HeartbeatOption func(*HeartbeatService)

func WithTelemetry(sink TelemetrySink) HeartbeatOption {
	return func(s *HeartbeatService) { s.telemetry = sink }
}

func WithHeartbeatClock(now func() time.Time) HeartbeatOption {
	return func(s *HeartbeatService) { s.now = now }
}

func NewHeartbeatService(cache store.ConfigCache, reg *PointRegistry, logger *zap.Logger, opts ...HeartbeatOption) *HeartbeatService {
	s := &HeartbeatService{
		cache:    cache,
		registry: reg,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Ingest stores a device's code snapshot as observed at observedAt.  Codes
// are kept exactly as reported.  Re-sending the same heartbeat is harmless
// and the stored heartbeat time never moves backwards.
func (s *HeartbeatService) Ingest(ctx context.Context, pointID int64, codes []string, observedAt time.Time) (types.HeartbeatAck, error) {
	if _, err := s.registry.Resolve(ctx, pointID); err != nil {
		return types.HeartbeatAck{}, err
	}

	res, err := s.cache.Upsert(ctx, pointID, codes, observedAt)
	if err != nil {
		return types.HeartbeatAck{}, storeErr("ingest heartbeat", err)
	}

	if s.telemetry != nil {
		s.telemetry.WriteHeartbeat(pointID, len(res.Codes), observedAt)
	}
	s.logger.Debug("heartbeat accepted",
		zap.Int64("point_id", pointID),
		zap.Int("codes", len(res.Codes)),
		zap.Time("heartbeat_at", res.HeartbeatAt),
	)

	return types.HeartbeatAck{
		PointID:     pointID,
		Codes:       res.Codes,
		HeartbeatAt: res.HeartbeatAt,
	}, nil
}

// Record validates a device heartbeat and ingests it at server time.
func (s *HeartbeatService) Record(ctx context.Context, req types.HeartbeatRequest) (types.HeartbeatResponse, error) {
	if req.PointID <= 0 {
		return types.HeartbeatResponse{}, ErrInvalidPointID
	}
	if req.Codes == nil {
		return types.HeartbeatResponse{}, ErrMissingCodes
	}

	now := s.now()
	ack, err := s.Ingest(ctx, req.PointID, req.Codes, now)
	if err != nil {
		return types.HeartbeatResponse{}, err
	}

	return types.HeartbeatResponse{
		OK:          true,
		PointID:     ack.PointID,
		Codes:       ack.Codes,
		HeartbeatAt: ack.HeartbeatAt.Format(time.RFC3339Nano),
		ServerTime:  now.Format(time.RFC3339Nano),
	}, nil
}

// Liveness classifies a point against the server clock.
func (s *HeartbeatService) Liveness(ctx context.Context, pointID int64) (types.LivenessResponse, error) {
	if _, err := s.registry.Resolve(ctx, pointID); err != nil {
		return types.LivenessResponse{}, err
	}

	now := s.now()
	hb, err := lastHeartbeat(ctx, s.cache, pointID)
	if err != nil {
		return types.LivenessResponse{}, err
	}

	resp := types.LivenessResponse{
		PointID:    pointID,
		Status:     Classify(hb, now),
		ServerTime: now.Format(time.RFC3339Nano),
	}
	if hb != nil {
		resp.HeartbeatAt = hb.Format(time.RFC3339Nano)
	}
	return resp, nil
}

// lastHeartbeat returns nil for a point that has never reported.
func lastHeartbeat(ctx context.Context, cache store.ConfigCache, pointID int64) (*time.Time, error) {
	cfg, err := cache.Get(ctx, pointID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("read heartbeat", err)
	}
	at := cfg.HeartbeatAt
	return &at, nil
}
