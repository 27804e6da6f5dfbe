package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
	"token-metadata.backend/pkg/logger"
)

type dynamicSweeper interface {
	SweepDynamicTokens(ctx context.Context) (int, error)
}

type hostPurger interface {
	Purge(ctx context.Context) (int64, error)
}

// DynamicRefreshSweepJob periodically re-enqueues dynamic tokens whose ttl elapsed
// and drops expired host penalties.
type DynamicRefreshSweepJob struct {
	sweeper  dynamicSweeper
	hosts    hostPurger
	interval time.Duration
	stop     chan struct{}
}

func NewDynamicRefreshSweepJob(sweeper dynamicSweeper, hosts hostPurger, interval time.Duration) *DynamicRefreshSweepJob {
	if interval <= 0 {
		interval = time.Minute
	}
	return &DynamicRefreshSweepJob{
		sweeper:  sweeper,
		hosts:    hosts,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

func (j *DynamicRefreshSweepJob) Start(ctx context.Context) {
	logger.Info(ctx, "Starting dynamic refresh sweep job", zap.Duration("interval", j.interval))

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Dynamic refresh sweep job stopped (context cancelled)")
			return
		case <-j.stop:
			logger.Info(ctx, "Dynamic refresh sweep job stopped")
			return
		case <-ticker.C:
			j.tick(ctx)
		}
	}
}

func (j *DynamicRefreshSweepJob) Stop() {
	close(j.stop)
}

func (j *DynamicRefreshSweepJob) tick(ctx context.Context) {
	if _, err := j.sweeper.SweepDynamicTokens(ctx); err != nil {
		logger.Error(ctx, "Dynamic refresh sweep failed", zap.Error(err))
	}

	if j.hosts == nil {
		return
	}
	purged, err := j.hosts.Purge(ctx)
	if err != nil {
		logger.Error(ctx, "Purging rate limited hosts failed", zap.Error(err))
		return
	}
	if purged > 0 {
		logger.Debug(ctx, "Purged expired host penalties", zap.Int64("count", purged))
	}
}
