package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/BrandonDHaskell/Portunus/keypad/internal/portunus/store"
)

// HeartbeatPruner periodically deletes heartbeat history older than a
// configurable retention period.  The cached config of each point and the
// access event log are never touched.
//
// A retention of 0 disables pruning entirely.
type HeartbeatPruner struct {
	log       store.HeartbeatLog
	retention time.Duration
	poller    *Poller
	logger    *zap.Logger
	now       func() time.Time
}

// PrunerConfig holds the parameters for NewHeartbeatPruner.
type PrunerConfig struct {
	// RetentionDays is how many days of heartbeat history to keep.
	// 0 means keep everything (pruner will not start).
	RetentionDays int

	// IntervalHours is how often the pruner runs.  Defaults to 6.
	IntervalHours int
}

func NewHeartbeatPruner(hl store.HeartbeatLog, cfg PrunerConfig, logger *zap.Logger) *HeartbeatPruner {
	interval := time.Duration(cfg.IntervalHours) * time.Hour
	if interval <= 0 {
		interval = 6 * time.Hour
	}

	p := &HeartbeatPruner{
		log:       hl,
		retention: time.Duration(cfg.RetentionDays) * 24 * time.Hour,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
	p.poller = NewPoller("heartbeat-pruner", interval, p.Prune, logger)
	return p
}

// Start runs an immediate prune, then repeats on the configured interval.
func (p *HeartbeatPruner) Start(ctx context.Context) {
	if p.retention <= 0 {
		p.logger.Info("heartbeat pruner disabled", zap.Int("retention_days", 0))
		return
	}
	p.poller.Start(ctx)
	p.logger.Info("heartbeat pruner started",
		zap.Duration("retention", p.retention),
		zap.Duration("interval", p.poller.interval),
	)
}

func (p *HeartbeatPruner) Stop() { p.poller.Stop() }

// Prune deletes history older than the retention window once.
func (p *HeartbeatPruner) Prune(ctx context.Context) error {
	cutoff := p.now().Add(-p.retention)
	deleted, err := p.log.PruneOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}
	if deleted > 0 {
		p.logger.Info("heartbeat history pruned",
			zap.Int64("deleted", deleted),
			zap.Time("cutoff", cutoff),
		)
	}
	return nil
}
