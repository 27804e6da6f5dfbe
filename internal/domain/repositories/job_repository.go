package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"token-metadata.backend/internal/domain/entities"
	"token-metadata.backend/pkg/utils"
)

// JobRepository defines job queue persistence
type JobRepository interface {
	// Insert adds a pending job unless the target already has a pending or queued one.
	// The returned bool reports whether a row was inserted.
	Insert(ctx context.Context, job *entities.Job) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Job, error)
	GetActiveByTarget(ctx context.Context, target entities.JobTarget) (*entities.Job, error)
	// FindCandidates returns stale queued jobs (updated_at <= staleBefore) oldest first,
	// followed by pending jobs due at now in creation order. Only candidates past the
	// cursor are returned.
	FindCandidates(ctx context.Context, now, staleBefore time.Time, after entities.CandidateCursor, limit int) ([]*entities.JobCandidate, error)
	// Claim moves the job to queued if its status and updated_at still match what was read.
	Claim(ctx context.Context, job *entities.Job, at time.Time) (bool, error)
	MarkDone(ctx context.Context, id uuid.UUID, at time.Time) error
	Reschedule(ctx context.Context, id uuid.UUID, retryCount int, nextAt time.Time, reason string) error
	MarkFailed(ctx context.Context, id uuid.UUID, retryCount int, at time.Time, reason string) error
	List(ctx context.Context, filter entities.JobFilter, pagination utils.PaginationParams) ([]*entities.Job, int64, error)
	ListFailedTargets(ctx context.Context, limit int) ([]entities.JobTarget, error)
	CountByStatus(ctx context.Context) (map[entities.JobStatus]int64, error)
}
