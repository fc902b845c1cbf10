package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/BrandonDHaskell/Portunus/keypad/internal/portunus/service"
	"github.com/BrandonDHaskell/Portunus/keypad/internal/portunus/store"
	"github.com/BrandonDHaskell/Portunus/keypad/internal/portunus/store/memory"
)

// fixture wires the services to in-memory stores holding one account with
// one hub and one point.
type fixture struct {
	points *memory.PointStore
	codes  *memory.CodeStore
	cache  *memory.ConfigCache
	events *memory.AccessEventStore
	pub    *recordingPublisher
	clock  *fakeClock
	logger *zap.Logger

	hub   store.Hub
	point store.Point
}

const testAccount int64 = 1

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		points: memory.NewPointStore(),
		codes:  memory.NewCodeStore(),
		cache:  memory.NewConfigCache(),
		events: memory.NewAccessEventStore(),
		pub:    &recordingPublisher{},
		clock:  &fakeClock{now: time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC)},
		logger: zaptest.NewLogger(t),
	}
	f.hub = f.points.AddHub(store.Hub{AccountID: testAccount, Name: "Home"})
	f.point = f.points.AddPoint(store.Point{HubID: f.hub.ID, Name: "Front Door"})
	return f
}

func (f *fixture) heartbeats(opts ...service.HeartbeatOption) *service.HeartbeatService {
	opts = append([]service.HeartbeatOption{service.WithHeartbeatClock(f.clock.Now)}, opts...)
	return service.NewHeartbeatService(f.cache, service.NewPointRegistry(f.points), f.logger, opts...)
}

func (f *fixture) access(es store.AccessEventStore) *service.AccessService {
	if es == nil {
		es = f.events
	}
	rec := service.NewEventRecorder(es, f.pub, f.logger)
	return service.NewAccessService(service.NewPointRegistry(f.points), f.codes, rec, f.logger,
		service.WithAccessClock(f.clock.Now))
}

func (f *fixture) dashboard() *service.DashboardService {
	return service.NewDashboardService(f.points, f.cache, f.events, f.codes, f.logger)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []store.AccessEventRecord
	err    error
}

func (p *recordingPublisher) PublishAccess(_ context.Context, ev store.AccessEventRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) Published() []store.AccessEventRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]store.AccessEventRecord(nil), p.events...)
}

// failingEventStore refuses every append.
type failingEventStore struct{}

var errDiskGone = errors.New("disk gone")

func (failingEventStore) RecordEvent(context.Context, store.AccessEventRecord) (int64, error) {
	return 0, errDiskGone
}

func (failingEventStore) ListEvents(context.Context, store.EventQuery) ([]store.AccessEventRecord, error) {
	return nil, errDiskGone
}
