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

// ChainTipRepository implements ChainTipRepository over the single chain_tip row
type ChainTipRepository struct {
	db *gorm.DB
}

func NewChainTipRepository(db *gorm.DB) *ChainTipRepository {
	return &ChainTipRepository{db: db}
}

func (r *ChainTipRepository) Init(ctx context.Context, at time.Time) error {
	return GetDB(ctx, r.db).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(&models.ChainTip{
			ID:                        models.ChainTipID,
			BlockHeight:               0,
			LastDynamicTokenRefreshAt: at,
			UpdatedAt:                 at,
		}).Error
}

func (r *ChainTipRepository) Get(ctx context.Context) (*entities.ChainTip, error) {
	var m models.ChainTip
	if err := GetDB(ctx, r.db).Where("id = ?", models.ChainTipID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return &entities.ChainTip{
		BlockHeight:               m.BlockHeight,
		LastDynamicTokenRefreshAt: m.LastDynamicTokenRefreshAt,
		UpdatedAt:                 m.UpdatedAt,
	}, nil
}

func (r *ChainTipRepository) Advance(ctx context.Context, height int64, at time.Time) (bool, error) {
	res := GetDB(ctx, r.db).Model(&models.ChainTip{}).
		Where("id = ? AND block_height < ?", models.ChainTipID, height).
		Updates(map[string]interface{}{
			"block_height": height,
			"updated_at":   at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *ChainTipRepository) SwapDynamicRefresh(ctx context.Context, expected, next time.Time) (bool, error) {
	res := GetDB(ctx, r.db).Model(&models.ChainTip{}).
		Where("id = ? AND last_dynamic_token_refresh_at = ?", models.ChainTipID, expected).
		Update("last_dynamic_token_refresh_at", next)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
