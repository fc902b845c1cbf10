package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/BrandonDHaskell/Portunus/keypad/internal/portunus/store"
	"github.com/BrandonDHaskell/Portunus/keypad/internal/portunus/types"
)

// EventPublisher fans recorded events out to live subscribers.  It is
// called on the decision path, so slow transports belong behind an
// EventFanout.
type EventPublisher interface {
	PublishAccess(ctx context.Context, ev store.AccessEventRecord) error
}

// EventRecorder appends access decisions to the audit log.
type EventRecorder struct {
	store     store.AccessEventStore
	publisher EventPublisher
	logger    *zap.Logger
}

// NewEventRecorder accepts a nil publisher.
func NewEventRecorder(es store.AccessEventStore, pub EventPublisher, logger *zap.Logger) *EventRecorder {
	return &EventRecorder{store: es, publisher: pub, logger: logger}
}

// Record appends one event and returns its id.  Publishing happens only
// after the append succeeded; a publish failure is logged and the event
// stays recorded.
func (r *EventRecorder) Record(ctx context.Context, pointID int64, d types.Decision, code string, at time.Time) (int64, error) {
	rec := store.AccessEventRecord{
		PointID:  pointID,
		At:       at,
		Access:   d.Access(),
		Code:     code,
		CodeName: d.CodeName,
		UserID:   d.UserID,
	}

	id, err := r.store.RecordEvent(ctx, rec)
	if err != nil {
		return 0, fmt.Errorf("record access event: %w: %w", ErrStoreUnavailable, err)
	}
	rec.ID = id

	if r.publisher != nil {
		if err := r.publisher.PublishAccess(ctx, rec); err != nil {
			r.logger.Warn("access event publish failed",
				zap.Int64("event_id", id),
				zap.Int64("point_id", pointID),
				zap.Error(err),
			)
		}
	}
	return id, nil
}
