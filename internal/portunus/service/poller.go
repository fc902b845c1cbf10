package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Poller runs fn immediately and then every interval until stopped.  A
// failed tick is logged and the next tick runs as scheduled.
type Poller struct {
	name     string
	interval time.Duration
	fn       func(context.Context) error
	logger   *zap.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

func NewPoller(name string, interval time.Duration, fn func(context.Context) error, logger *zap.Logger) *Poller {
	return &Poller{
		name:     name,
		interval: interval,
		fn:       fn,
		logger:   logger.With(zap.String("poller", name)),
	}
}

// Start launches the loop.  Calling Start on a started poller does nothing.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true

	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	go p.loop(ctx, p.done)
}

// Stop cancels the loop and waits for an in-flight tick to return.  No tick
// starts after Stop returns.  Stop is idempotent and safe before Start.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (p *Poller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	p.tick(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	if err := p.fn(ctx); err != nil && ctx.Err() == nil {
		p.logger.Warn("poll failed", zap.Error(err))
	}
}
