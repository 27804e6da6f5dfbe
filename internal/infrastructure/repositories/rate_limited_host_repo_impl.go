package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"token-metadata.backend/internal/domain/entities"
	domainerrors "token-metadata.backend/internal/domain/errors"
	"token-metadata.backend/internal/infrastructure/models"
)

// RateLimitedHostRepository implements RateLimitedHostRepository
type RateLimitedHostRepository struct {
	db *gorm.DB
}

func NewRateLimitedHostRepository(db *gorm.DB) *RateLimitedHostRepository {
	return &RateLimitedHostRepository{db: db}
}

// Upsert is a single statement so concurrent penalties never shorten each other.
func (r *RateLimitedHostRepository) Upsert(ctx context.Context, hostname string, retryAfter, at time.Time) error {
	m := &models.RateLimitedHost{
		Hostname:   hostname,
		RetryAfter: retryAfter,
		CreatedAt:  at,
		UpdatedAt:  at,
	}
	return GetDB(ctx, r.db).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "hostname"}},
		DoUpdates: clause.Set{
			{
				Column: clause.Column{Name: "retry_after"},
				Value: gorm.Expr("CASE WHEN excluded.retry_after > rate_limited_hosts.retry_after " +
					"THEN excluded.retry_after ELSE rate_limited_hosts.retry_after END"),
			},
			{Column: clause.Column{Name: "updated_at"}, Value: gorm.Expr("excluded.updated_at")},
		},
	}).Create(m).Error
}

func (r *RateLimitedHostRepository) Get(ctx context.Context, hostname string) (*entities.RateLimitedHost, error) {
	var m models.RateLimitedHost
	if err := GetDB(ctx, r.db).Where("hostname = ?", hostname).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return toRateLimitedHostEntity(&m), nil
}

func (r *RateLimitedHostRepository) ListActive(ctx context.Context, now time.Time) ([]*entities.RateLimitedHost, error) {
	var ms []models.RateLimitedHost
	if err := GetDB(ctx, r.db).
		Where("retry_after > ?", now).
		Order("retry_after DESC").
		Find(&ms).Error; err != nil {
		return nil, err
	}
	out := make([]*entities.RateLimitedHost, 0, len(ms))
	for i := range ms {
		out = append(out, toRateLimitedHostEntity(&ms[i]))
	}
	return out, nil
}

func (r *RateLimitedHostRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := GetDB(ctx, r.db).Where("retry_after <= ?", now).Delete(&models.RateLimitedHost{})
	return res.RowsAffected, res.Error
}

func toRateLimitedHostEntity(m *models.RateLimitedHost) *entities.RateLimitedHost {
	return &entities.RateLimitedHost{
		Hostname:   m.Hostname,
		RetryAfter: m.RetryAfter,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}
