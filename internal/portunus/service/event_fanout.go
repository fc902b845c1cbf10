package service

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/BrandonDHaskell/Portunus/keypad/internal/portunus/store"
)

// ErrFanoutFull is returned when the fan-out queue has no room; the event
// is dropped for subscribers but stays in the audit log.
var ErrFanoutFull = errors.New("event fan-out queue full")

// ErrFanoutClosed is returned by PublishAccess after Close.
var ErrFanoutClosed = errors.New("event fan-out closed")

const defaultFanoutQueue = 256

// EventFanout decouples subscribers from the decision path.  PublishAccess
// only enqueues; one worker goroutine delivers to the wrapped publisher in
// recording order.
type EventFanout struct {
	next   EventPublisher
	logger *zap.Logger
	queue  chan store.AccessEventRecord

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewEventFanout starts the delivery worker.  size <= 0 uses the default
// queue length.
func NewEventFanout(next EventPublisher, size int, logger *zap.Logger) *EventFanout {
	if size <= 0 {
		size = defaultFanoutQueue
	}
	ctx, cancel := context.WithCancel(context.Background())
	f := &EventFanout{
		next:   next,
		logger: logger,
		queue:  make(chan store.AccessEventRecord, size),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go f.run()
	return f
}

// PublishAccess never blocks.  The caller's ctx is not used for delivery,
// which outlives the request that recorded the event.
func (f *EventFanout) PublishAccess(_ context.Context, ev store.AccessEventRecord) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return ErrFanoutClosed
	}
	select {
	case f.queue <- ev:
		return nil
	default:
		return ErrFanoutFull
	}
}

// Close stops accepting events and delivers what is queued.  When ctx ends
// first the in-flight delivery is cancelled and the rest are dropped.
func (f *EventFanout) Close(ctx context.Context) {
	f.mu.Lock()
	if !f.closed {
		f.closed = true
		close(f.queue)
	}
	f.mu.Unlock()

	select {
	case <-f.done:
	case <-ctx.Done():
		f.cancel()
		<-f.done
	}
	f.cancel()
}

func (f *EventFanout) run() {
	defer close(f.done)

	for ev := range f.queue {
		if f.ctx.Err() != nil {
			continue
		}
		if err := f.next.PublishAccess(f.ctx, ev); err != nil {
			f.logger.Warn("access event publish failed",
				zap.Int64("event_id", ev.ID),
				zap.Int64("point_id", ev.PointID),
				zap.Error(err),
			)
		}
	}
}
