package mqtt

import (
	"context"
	"sync"

	"github.com/BrandonDHaskell/Portunus/keypad/internal/portunus/store"
)

// FakePublisher records published events for test assertions and for
// running without a broker.
type FakePublisher struct {
	mu       sync.Mutex
	events   []store.AccessEventRecord
	topics   []string
	payloads [][]byte

	// PublishError, if set, is returned by PublishAccess.
	PublishError error
}

func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

func (f *FakePublisher) PublishAccess(_ context.Context, ev store.AccessEventRecord) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	payload, err := FormatPayload(ev)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	f.topics = append(f.topics, AccessTopic(ev.PointID))
	f.payloads = append(f.payloads, payload)
	return nil
}

func (f *FakePublisher) Events() []store.AccessEventRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]store.AccessEventRecord(nil), f.events...)
}

func (f *FakePublisher) Topics() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.topics...)
}

func (f *FakePublisher) Payloads() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.payloads...)
}

func (f *FakePublisher) Close() error { return nil }
