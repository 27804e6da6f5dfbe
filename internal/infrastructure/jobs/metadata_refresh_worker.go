package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"token-metadata.backend/internal/domain/entities"
	"token-metadata.backend/internal/usecases"
	"token-metadata.backend/pkg/logger"
)

type jobClaimer interface {
	ClaimNext(ctx context.Context, limit int) ([]*entities.Job, error)
	Fail(ctx context.Context, job *entities.Job, permanent bool, reason string) error
	Defer(ctx context.Context, job *entities.Job, at time.Time, reason string) error
}

type jobProcessor interface {
	Process(ctx context.Context, job *entities.Job) error
}

type hostPenalizer interface {
	Penalize(ctx context.Context, host string, retryAfter time.Duration) error
}

// WorkerConfig holds worker pool settings
type WorkerConfig struct {
	Concurrency  int
	ClaimBatch   int
	PollInterval time.Duration
}

// MetadataRefreshWorker polls the job queue and runs claimed jobs in parallel.
type MetadataRefreshWorker struct {
	queue     jobClaimer
	processor jobProcessor
	hosts     hostPenalizer
	cfg       WorkerConfig
	now       func() time.Time
	stop      chan struct{}
}

func NewMetadataRefreshWorker(queue jobClaimer, processor jobProcessor, hosts hostPenalizer, cfg WorkerConfig) *MetadataRefreshWorker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.ClaimBatch <= 0 {
		cfg.ClaimBatch = cfg.Concurrency
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	return &MetadataRefreshWorker{
		queue:     queue,
		processor: processor,
		hosts:     hosts,
		cfg:       cfg,
		now:       usecases.SystemClock,
		stop:      make(chan struct{}),
	}
}

func (w *MetadataRefreshWorker) Start(ctx context.Context) {
	logger.Info(ctx, "Starting metadata refresh worker",
		zap.Int("concurrency", w.cfg.Concurrency),
		zap.Int("claimBatch", w.cfg.ClaimBatch),
	)

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Metadata refresh worker stopped (context cancelled)")
			return
		case <-w.stop:
			logger.Info(ctx, "Metadata refresh worker stopped")
			return
		case <-ticker.C:
			// drain while there is work so a backlog does not wait a full tick per batch
			for {
				n, err := w.RunOnce(ctx)
				if err != nil {
					logger.Error(ctx, "Refresh batch failed", zap.Error(err))
					break
				}
				if n < w.cfg.ClaimBatch || ctx.Err() != nil {
					break
				}
			}
		}
	}
}

func (w *MetadataRefreshWorker) Stop() {
	close(w.stop)
}

// RunOnce claims one batch and processes it. It returns how many jobs were claimed.
func (w *MetadataRefreshWorker) RunOnce(ctx context.Context) (int, error) {
	claimed, err := w.queue.ClaimNext(ctx, w.cfg.ClaimBatch)
	if err != nil {
		return 0, err
	}
	if len(claimed) == 0 {
		return 0, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.cfg.Concurrency)
	for i, job := range claimed {
		slot := i % w.cfg.Concurrency
		g.Go(func() error {
			jobCtx := context.WithValue(logger.WithJob(gctx, job.ID.String()), logger.WorkerKey, slot)
			w.handle(jobCtx, job)
			return nil
		})
	}
	return len(claimed), g.Wait()
}

func (w *MetadataRefreshWorker) handle(ctx context.Context, job *entities.Job) {
	err := w.processor.Process(ctx, job)
	if err == nil {
		return
	}

	decision := usecases.ClassifyJobError(err)
	if decision.Deferred {
		at := w.now()
		if decision.DeferUntil.After(at) {
			at = decision.DeferUntil
		}
		if err := w.queue.Defer(ctx, job, at, decision.Reason); err != nil {
			logger.Error(ctx, "Failed to defer job", zap.Error(err))
		}
		return
	}
	if decision.PenaltyHost != "" && w.hosts != nil {
		if err := w.hosts.Penalize(ctx, decision.PenaltyHost, decision.PenaltyAfter); err != nil {
			logger.Error(ctx, "Failed to penalize host", zap.String("host", decision.PenaltyHost), zap.Error(err))
		}
	}
	logger.Warn(ctx, "Job attempt failed",
		zap.String("target", job.Target.String()),
		zap.Error(err),
	)
	if err := w.queue.Fail(ctx, job, decision.Permanent, decision.Reason); err != nil {
		logger.Error(ctx, "Failed to record job failure", zap.Error(err))
	}
}
