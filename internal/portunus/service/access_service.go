package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/BrandonDHaskell/Portunus/keypad/internal/portunus/store"
	"github.com/BrandonDHaskell/Portunus/keypad/internal/portunus/types"
)

type AccessService struct {
	registry *PointRegistry
	codes    store.CodeStore
	recorder *EventRecorder
	logger   *zap.Logger
	now      func() time.Time
}

type AccessOption func(*AccessService)

func WithAccessClock(now func() time.Time) AccessOption {
	return func(s *AccessService) { s.now = now }
}

func NewAccessService(reg *PointRegistry, codes store.CodeStore, rec *EventRecorder, logger *zap.Logger, opts ...AccessOption) *AccessService {
	s := &AccessService{
		registry: reg,
		codes:    codes,
		recorder: rec,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Authorize decides whether code opens pointID and records the decision.
// Point codes are checked before user codes.  Connectivity plays no part.
// The returned event id identifies the audit record; no decision is
// returned unless that record was written.
func (s *AccessService) Authorize(ctx context.Context, pointID int64, code string, now time.Time) (types.Decision, int64, error) {
	if _, err := s.registry.Resolve(ctx, pointID); err != nil {
		return types.Decision{}, 0, err
	}

	d, err := s.match(ctx, pointID, code)
	if err != nil {
		return types.Decision{}, 0, err
	}

	eventID, err := s.recorder.Record(ctx, pointID, d, code, now)
	if err != nil {
		return types.Decision{}, 0, err
	}

	s.logger.Info("access decided",
		zap.Int64("point_id", pointID),
		zap.Int64("event_id", eventID),
		zap.String("access", d.Access()),
	)
	return d, eventID, nil
}

func (s *AccessService) match(ctx context.Context, pointID int64, code string) (types.Decision, error) {
	pc, err := s.codes.FindPointCode(ctx, pointID, code)
	switch {
	case err == nil:
		return types.GrantedByPointCode(pc.Name), nil
	case !errors.Is(err, store.ErrNotFound):
		return types.Decision{}, storeErr("match point code", err)
	}

	u, err := s.codes.FindGrantedUser(ctx, pointID, code)
	switch {
	case err == nil:
		return types.GrantedByUser(u.ID), nil
	case !errors.Is(err, store.ErrNotFound):
		return types.Decision{}, storeErr("match user code", err)
	}

	return types.Denied(), nil
}

// Decide is the device-facing wrapper around Authorize.  A denial is a
// normal response, not an error.
func (s *AccessService) Decide(ctx context.Context, req types.AccessRequest) (types.AccessResponse, error) {
	if req.PointID <= 0 {
		return types.AccessResponse{}, ErrInvalidPointID
	}

	now := s.now()
	d, eventID, err := s.Authorize(ctx, req.PointID, req.Code, now)
	if err != nil {
		return types.AccessResponse{}, err
	}

	return types.AccessResponse{
		Granted:    d.Granted,
		Source:     d.Source,
		CodeName:   d.CodeName,
		UserID:     d.UserID,
		EventID:    eventID,
		PointID:    req.PointID,
		ServerTime: now.Format(time.RFC3339Nano),
	}, nil
}
