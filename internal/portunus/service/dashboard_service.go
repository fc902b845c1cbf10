package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/BrandonDHaskell/Portunus/keypad/internal/portunus/store"
	"github.com/BrandonDHaskell/Portunus/keypad/internal/portunus/types"
)

// EventScope selects the events of one hub or one point.
type EventScope struct {
	HubID   int64
	PointID int64
	Limit   int
}

// DashboardService serves the read-only consumer views.  Every call is
// scoped to the caller's account.
type DashboardService struct {
	points store.PointStore
	cache  store.ConfigCache
	events store.AccessEventStore
	codes  store.CodeStore
	logger *zap.Logger
}

func NewDashboardService(
	points store.PointStore,
	cache store.ConfigCache,
	events store.AccessEventStore,
	codes store.CodeStore,
	logger *zap.Logger,
) *DashboardService {
	return &DashboardService{points: points, cache: cache, events: events, codes: codes, logger: logger}
}

// Feed lists every point of the account with its connectivity at now,
// ordered by hub name then point name.  A hub's connectivity follows its
// most recently heard point.
func (s *DashboardService) Feed(ctx context.Context, accountID int64, now time.Time) ([]types.DashboardRow, error) {
	points, err := s.points.ListPointsByAccount(ctx, accountID)
	if err != nil {
		return nil, storeErr("list points", err)
	}

	beats := make([]*time.Time, len(points))
	newestByHub := make(map[int64]*time.Time)
	for i, p := range points {
		hb, err := lastHeartbeat(ctx, s.cache, p.ID)
		if err != nil {
			return nil, err
		}
		beats[i] = hb
		if cur := newestByHub[p.HubID]; hb != nil && (cur == nil || hb.After(*cur)) {
			newestByHub[p.HubID] = hb
		}
	}

	rows := make([]types.DashboardRow, 0, len(points))
	for i, p := range points {
		row := types.DashboardRow{
			PointID:         p.ID,
			HubID:           p.HubID,
			HubName:         p.HubName,
			PointName:       p.Name,
			Connectivity:    Classify(beats[i], now),
			HubConnectivity: Classify(newestByHub[p.HubID], now),
		}
		if beats[i] != nil {
			row.HeartbeatAt = beats[i].Format(time.RFC3339Nano)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Events returns the newest events of a hub or point owned by accountID.
// A scope outside the account is reported as ErrScopeNotFound.
func (s *DashboardService) Events(ctx context.Context, accountID int64, scope EventScope) ([]types.EventView, error) {
	if (scope.HubID > 0) == (scope.PointID > 0) || scope.HubID < 0 || scope.PointID < 0 {
		return nil, ErrInvalidScope
	}

	names, err := s.scopePoints(ctx, accountID, scope)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(names))
	for id := range names {
		ids = append(ids, id)
	}
	recs, err := s.events.ListEvents(ctx, store.EventQuery{PointIDs: ids, Limit: scope.Limit})
	if err != nil {
		return nil, storeErr("list events", err)
	}

	userNames := make(map[int64]string)
	views := make([]types.EventView, 0, len(recs))
	for _, r := range recs {
		v := types.EventView{
			ID:        r.ID,
			At:        r.At.UTC().Format(time.RFC3339Nano),
			Access:    r.Access,
			Granted:   types.IsGrantedAccess(r.Access),
			Code:      r.Code,
			PointID:   r.PointID,
			PointName: names[r.PointID],
			UserID:    r.UserID,
		}
		if r.UserID != nil {
			v.UserName, err = s.userName(ctx, *r.UserID, userNames)
			if err != nil {
				return nil, err
			}
		}
		views = append(views, v)
	}
	return views, nil
}

// scopePoints returns the names of the points in scope keyed by id.
func (s *DashboardService) scopePoints(ctx context.Context, accountID int64, scope EventScope) (map[int64]string, error) {
	hubID := scope.HubID
	var single *store.Point
	if scope.PointID > 0 {
		p, err := s.points.GetPoint(ctx, scope.PointID)
		if err != nil {
			return nil, scopeErr(err)
		}
		hubID = p.HubID
		single = &p
	}

	hub, err := s.points.GetHub(ctx, hubID)
	if err != nil {
		return nil, scopeErr(err)
	}
	if hub.AccountID != accountID {
		return nil, ErrScopeNotFound
	}

	if single != nil {
		return map[int64]string{single.ID: single.Name}, nil
	}

	pts, err := s.points.ListPointsByHub(ctx, hub.ID)
	if err != nil {
		return nil, storeErr("list hub points", err)
	}
	names := make(map[int64]string, len(pts))
	for _, p := range pts {
		names[p.ID] = p.Name
	}
	return names, nil
}

// userName resolves soft-deleted users too; a user that no longer exists
// at all yields an empty name.
func (s *DashboardService) userName(ctx context.Context, userID int64, seen map[int64]string) (string, error) {
	if name, ok := seen[userID]; ok {
		return name, nil
	}
	u, err := s.codes.GetUser(ctx, userID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.logger.Debug("event references unknown user", zap.Int64("user_id", userID))
	case err != nil:
		return "", storeErr("resolve user", err)
	}
	seen[userID] = u.Name
	return u.Name, nil
}

func scopeErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrScopeNotFound, err)
	}
	return storeErr("resolve scope", err)
}
