package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"token-metadata.backend/internal/domain/entities"
	domainerrors "token-metadata.backend/internal/domain/errors"
	"token-metadata.backend/internal/domain/repositories"
	"token-metadata.backend/internal/metrics"
	"token-metadata.backend/pkg/logger"
	"token-metadata.backend/pkg/utils"
)

// candidateOverfetch sizes each candidate page relative to the claim limit.
const candidateOverfetch = 4

// HostResolver maps a token uri to the host it is fetched from.
type HostResolver interface {
	ResolveHost(uri string) string
}

// JobQueueConfig holds retry and claim settings
type JobQueueConfig struct {
	MaxRetries     int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
	// QueuedTimeout is how long a queued job may sit unfinished before another worker reclaims it.
	QueuedTimeout time.Duration
}

// JobQueue is the persisted refresh queue and its state machine:
// pending -> queued -> done | pending (retry) | failed.
type JobQueue struct {
	jobs     repositories.JobRepository
	hosts    *HostRateLimiter
	resolver HostResolver
	uow      repositories.UnitOfWork
	cfg      JobQueueConfig
	now      Clock
}

func NewJobQueue(
	jobs repositories.JobRepository,
	hosts *HostRateLimiter,
	resolver HostResolver,
	uow repositories.UnitOfWork,
	cfg JobQueueConfig,
	now Clock,
) *JobQueue {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 1
	}
	return &JobQueue{
		jobs:     jobs,
		hosts:    hosts,
		resolver: resolver,
		uow:      uow,
		cfg:      cfg,
		now:      clockOrDefault(now),
	}
}

// Enqueue adds a pending job for target. It is a no-op when the target already has an
// active job, the returned bool reports whether a new job was created.
func (q *JobQueue) Enqueue(ctx context.Context, target entities.JobTarget) (bool, error) {
	if target.IsZero() {
		return false, domainerrors.ErrInvalidJobTarget
	}
	now := q.now()
	job := &entities.Job{
		ID:        utils.GenerateUUIDv7(),
		Target:    target,
		Status:    entities.JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	created, err := q.jobs.Insert(ctx, job)
	if err != nil {
		return false, fmt.Errorf("enqueue %s: %w", target, err)
	}
	if created {
		metrics.JobsEnqueued.WithLabelValues(targetLabel(target)).Inc()
	}
	return created, nil
}

// ClaimNext moves up to limit claimable jobs to queued and returns them.
// Token jobs whose host is rate limited stay pending and untouched, and the
// pass keeps paging past them until limit jobs are claimed or none are left.
func (q *JobQueue) ClaimNext(ctx context.Context, limit int) ([]*entities.Job, error) {
	if limit <= 0 {
		return nil, nil
	}
	var claimed []*entities.Job
	err := q.uow.Do(ctx, func(ctx context.Context) error {
		now := q.now()
		var limited map[string]time.Time
		var loaded bool
		var cursor entities.CandidateCursor
		page := limit * candidateOverfetch
		for len(claimed) < limit {
			candidates, err := q.jobs.FindCandidates(ctx, now, now.Add(-q.cfg.QueuedTimeout), cursor, page)
			if err != nil {
				return err
			}
			if len(candidates) == 0 {
				return nil
			}
			if !loaded {
				if limited, err = q.hosts.LimitedHosts(ctx); err != nil {
					return err
				}
				loaded = true
			}

			for _, c := range candidates {
				if len(claimed) == limit {
					break
				}
				cursor.Advance(c.Job)
				if c.TokenURI != "" && len(limited) > 0 {
					if _, blocked := limited[q.resolver.ResolveHost(c.TokenURI)]; blocked {
						metrics.JobsSkippedRateLimited.Inc()
						continue
					}
				}
				ok, err := q.jobs.Claim(ctx, c.Job, now)
				if err != nil {
					return err
				}
				if ok {
					claimed = append(claimed, c.Job)
				}
			}
			if len(candidates) < page {
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("claim jobs: %w", err)
	}
	metrics.JobsClaimed.Add(float64(len(claimed)))
	return claimed, nil
}

// Complete marks a queued job done.
func (q *JobQueue) Complete(ctx context.Context, jobID uuid.UUID) error {
	if err := q.jobs.MarkDone(ctx, jobID, q.now()); err != nil {
		return err
	}
	metrics.JobsFinished.WithLabelValues("done").Inc()
	return nil
}

// Fail records a failed attempt. The job becomes failed when permanent or once
// its retries reach the ceiling, otherwise it goes back to pending after a backoff.
func (q *JobQueue) Fail(ctx context.Context, job *entities.Job, permanent bool, reason string) error {
	retries := job.RetryCount + 1
	now := q.now()

	if permanent || retries >= q.cfg.MaxRetries {
		if err := q.jobs.MarkFailed(ctx, job.ID, retries, now, reason); err != nil {
			return err
		}
		metrics.JobsFinished.WithLabelValues("failed").Inc()
		logger.Warn(ctx, "Job failed",
			zap.String("jobId", job.ID.String()),
			zap.String("target", job.Target.String()),
			zap.Int("retryCount", retries),
			zap.Bool("permanent", permanent),
			zap.String("reason", reason),
		)
		return nil
	}

	next := now.Add(q.Backoff(retries))
	if err := q.jobs.Reschedule(ctx, job.ID, retries, next, reason); err != nil {
		return err
	}
	metrics.JobsFinished.WithLabelValues("retry").Inc()
	logger.Info(ctx, "Job rescheduled",
		zap.String("jobId", job.ID.String()),
		zap.Int("retryCount", retries),
		zap.Time("nextAttempt", next),
	)
	return nil
}

// Defer puts a claimed job back to pending until at without counting an attempt.
func (q *JobQueue) Defer(ctx context.Context, job *entities.Job, at time.Time, reason string) error {
	if err := q.jobs.Reschedule(ctx, job.ID, job.RetryCount, at, reason); err != nil {
		return err
	}
	metrics.JobsFinished.WithLabelValues("deferred").Inc()
	return nil
}

// Backoff returns min(base * 2^(n-1), max) for the n-th retry.
func (q *JobQueue) Backoff(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	d := q.cfg.RetryBaseDelay
	for i := 1; i < n; i++ {
		d *= 2
		if q.cfg.RetryMaxDelay > 0 && d >= q.cfg.RetryMaxDelay {
			return q.cfg.RetryMaxDelay
		}
	}
	if q.cfg.RetryMaxDelay > 0 && d > q.cfg.RetryMaxDelay {
		return q.cfg.RetryMaxDelay
	}
	return d
}

func (q *JobQueue) Get(ctx context.Context, id uuid.UUID) (*entities.Job, error) {
	return q.jobs.GetByID(ctx, id)
}

func targetLabel(t entities.JobTarget) string {
	if t.IsContract() {
		return "contract"
	}
	return "token"
}
