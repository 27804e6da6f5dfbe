package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"token-metadata.backend/internal/domain/entities"
	domainerrors "token-metadata.backend/internal/domain/errors"
	"token-metadata.backend/internal/infrastructure/models"
	"token-metadata.backend/pkg/utils"
)

// JobRepository implements JobRepository
type JobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Insert relies on the partial unique indexes over active jobs, a duplicate is silently skipped.
func (r *JobRepository) Insert(ctx context.Context, job *entities.Job) (bool, error) {
	m, err := toJobModel(job)
	if err != nil {
		return false, err
	}
	res := GetDB(ctx, r.db).Clauses(clause.OnConflict{DoNothing: true}).Create(m)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *JobRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Job, error) {
	var m models.Job
	if err := GetDB(ctx, r.db).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return toJobEntity(&m)
}

func (r *JobRepository) GetActiveByTarget(ctx context.Context, target entities.JobTarget) (*entities.Job, error) {
	q := GetDB(ctx, r.db).Where("status IN ?", activeStatuses())
	if id, ok := target.TokenID(); ok {
		q = q.Where("token_id = ?", id)
	} else if id, ok := target.ContractID(); ok {
		q = q.Where("smart_contract_id = ?", id)
	} else {
		return nil, domainerrors.ErrInvalidJobTarget
	}
	var m models.Job
	if err := q.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return toJobEntity(&m)
}

func (r *JobRepository) FindCandidates(ctx context.Context, now, staleBefore time.Time, after entities.CandidateCursor, limit int) ([]*entities.JobCandidate, error) {
	if limit <= 0 {
		return nil, nil
	}
	db := GetDB(ctx, r.db)

	where := "jobs.status = ? AND jobs.updated_at <= ?"
	args := []interface{}{entities.JobStatusQueued, staleBefore}
	if after.QueuedID != uuid.Nil {
		where += " AND (jobs.updated_at > ? OR (jobs.updated_at = ? AND jobs.id > ?))"
		args = append(args, after.QueuedUpdatedAt, after.QueuedUpdatedAt, after.QueuedID)
	}
	stale, err := r.candidates(db, where, args, "jobs.updated_at ASC, jobs.id ASC", limit)
	if err != nil {
		return nil, err
	}
	out := stale
	if remaining := limit - len(stale); remaining > 0 {
		where = "jobs.status = ? AND jobs.updated_at <= ?"
		args = []interface{}{entities.JobStatusPending, now}
		if after.PendingID != uuid.Nil {
			where += " AND (jobs.created_at > ? OR (jobs.created_at = ? AND jobs.id > ?))"
			args = append(args, after.PendingCreatedAt, after.PendingCreatedAt, after.PendingID)
		}
		pending, err := r.candidates(db, where, args, "jobs.created_at ASC, jobs.id ASC", remaining)
		if err != nil {
			return nil, err
		}
		out = append(out, pending...)
	}
	return out, nil
}

func (r *JobRepository) candidates(db *gorm.DB, where string, args []interface{}, order string, limit int) ([]*entities.JobCandidate, error) {
	var rows []models.JobCandidate
	q := db.Table("jobs").
		Select("jobs.*, tokens.uri AS token_uri, tokens.token_number AS token_number").
		Joins("LEFT JOIN tokens ON tokens.id = jobs.token_id").
		Where(where, args...).
		Order(order).
		Limit(limit)
	if db.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE", Table: clause.Table{Name: "jobs"}, Options: "SKIP LOCKED"})
	}
	if err := q.Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]*entities.JobCandidate, 0, len(rows))
	for i := range rows {
		job, err := toJobEntity(&rows[i].Job)
		if err != nil {
			return nil, err
		}
		c := &entities.JobCandidate{Job: job}
		if rows[i].TokenURI.Valid {
			tok := entities.Token{URI: rows[i].TokenURI, TokenNumber: rows[i].TokenNumber.Int64}
			c.TokenURI = tok.ResolvedURI()
		}
		out = append(out, c)
	}
	return out, nil
}

// Claim is a compare-and-swap on (status, updated_at), two workers racing for a row cannot both win.
func (r *JobRepository) Claim(ctx context.Context, job *entities.Job, at time.Time) (bool, error) {
	res := GetDB(ctx, r.db).Model(&models.Job{}).
		Where("id = ? AND status = ? AND updated_at = ?", job.ID, string(job.Status), job.UpdatedAt).
		Updates(map[string]interface{}{
			"status":     string(entities.JobStatusQueued),
			"updated_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected != 1 {
		return false, nil
	}
	job.Status = entities.JobStatusQueued
	job.UpdatedAt = at
	return true, nil
}

func (r *JobRepository) MarkDone(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.transitionFromQueued(ctx, id, map[string]interface{}{
		"status":         string(entities.JobStatusDone),
		"invalid_reason": nil,
		"updated_at":     at,
	})
}

func (r *JobRepository) Reschedule(ctx context.Context, id uuid.UUID, retryCount int, nextAt time.Time, reason string) error {
	return r.transitionFromQueued(ctx, id, map[string]interface{}{
		"status":         string(entities.JobStatusPending),
		"retry_count":    retryCount,
		"invalid_reason": reason,
		"updated_at":     nextAt,
	})
}

func (r *JobRepository) MarkFailed(ctx context.Context, id uuid.UUID, retryCount int, at time.Time, reason string) error {
	return r.transitionFromQueued(ctx, id, map[string]interface{}{
		"status":         string(entities.JobStatusFailed),
		"retry_count":    retryCount,
		"invalid_reason": reason,
		"updated_at":     at,
	})
}

func (r *JobRepository) transitionFromQueued(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	res := GetDB(ctx, r.db).Model(&models.Job{}).
		Where("id = ? AND status = ?", id, string(entities.JobStatusQueued)).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return fmt.Errorf("job %s: %w", id, domainerrors.ErrJobNotQueued)
	}
	return nil
}

func (r *JobRepository) List(ctx context.Context, filter entities.JobFilter, pagination utils.PaginationParams) ([]*entities.Job, int64, error) {
	q := GetDB(ctx, r.db).Model(&models.Job{})
	if filter.Status != nil {
		q = q.Where("status = ?", string(*filter.Status))
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var ms []models.Job
	q = q.Order("created_at DESC")
	if pagination.Limit > 0 {
		q = q.Limit(pagination.Limit).Offset(pagination.CalculateOffset())
	}
	if err := q.Find(&ms).Error; err != nil {
		return nil, 0, err
	}

	jobs := make([]*entities.Job, 0, len(ms))
	for i := range ms {
		job, err := toJobEntity(&ms[i])
		if err != nil {
			return nil, 0, err
		}
		jobs = append(jobs, job)
	}
	return jobs, total, nil
}

func (r *JobRepository) ListFailedTargets(ctx context.Context, limit int) ([]entities.JobTarget, error) {
	var ms []models.Job
	q := GetDB(ctx, r.db).
		Where("status = ?", string(entities.JobStatusFailed)).
		Order("updated_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&ms).Error; err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(ms))
	out := make([]entities.JobTarget, 0, len(ms))
	for i := range ms {
		job, err := toJobEntity(&ms[i])
		if err != nil {
			return nil, err
		}
		key := job.Target.String()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, job.Target)
	}
	return out, nil
}

func (r *JobRepository) CountByStatus(ctx context.Context) (map[entities.JobStatus]int64, error) {
	var rows []struct {
		Status string `gorm:"column:status"`
		Count  int64  `gorm:"column:count"`
	}
	if err := GetDB(ctx, r.db).Model(&models.Job{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[entities.JobStatus]int64, len(rows))
	for _, row := range rows {
		out[entities.JobStatus(row.Status)] = row.Count
	}
	return out, nil
}

func activeStatuses() []string {
	return []string{string(entities.JobStatusPending), string(entities.JobStatusQueued)}
}

func toJobModel(job *entities.Job) (*models.Job, error) {
	if job.Target.IsZero() {
		return nil, domainerrors.ErrInvalidJobTarget
	}
	m := &models.Job{
		ID:            job.ID,
		Status:        string(job.Status),
		RetryCount:    job.RetryCount,
		InvalidReason: job.InvalidReason,
		CreatedAt:     job.CreatedAt,
		UpdatedAt:     job.UpdatedAt,
	}
	if id, ok := job.Target.TokenID(); ok {
		m.TokenID = uuid.NullUUID{UUID: id, Valid: true}
	}
	if id, ok := job.Target.ContractID(); ok {
		m.SmartContractID = uuid.NullUUID{UUID: id, Valid: true}
	}
	return m, nil
}

// toJobEntity refuses rows that reference both or neither target, such rows are never repaired here.
func toJobEntity(m *models.Job) (*entities.Job, error) {
	var target entities.JobTarget
	switch {
	case m.TokenID.Valid && !m.SmartContractID.Valid:
		target = entities.TokenTarget(m.TokenID.UUID)
	case m.SmartContractID.Valid && !m.TokenID.Valid:
		target = entities.ContractTarget(m.SmartContractID.UUID)
	default:
		return nil, fmt.Errorf("job %s: %w", m.ID, domainerrors.ErrInvariantViolation)
	}
	return &entities.Job{
		ID:            m.ID,
		Target:        target,
		Status:        entities.JobStatus(m.Status),
		RetryCount:    m.RetryCount,
		InvalidReason: null.NewString(m.InvalidReason.String, m.InvalidReason.Valid),
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}, nil
}
