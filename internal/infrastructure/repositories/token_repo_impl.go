package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"token-metadata.backend/internal/domain/entities"
	domainerrors "token-metadata.backend/internal/domain/errors"
	"token-metadata.backend/internal/infrastructure/models"
	"token-metadata.backend/pkg/utils"
)

// TokenRepository implements token data operations
type TokenRepository struct {
	db *gorm.DB
}

func NewTokenRepository(db *gorm.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

func (r *TokenRepository) InsertMissing(ctx context.Context, tokens []*entities.Token) error {
	if len(tokens) == 0 {
		return nil
	}
	now := time.Now().UTC()
	ms := make([]models.Token, 0, len(tokens))
	for _, t := range tokens {
		if t.ID == uuid.Nil {
			t.ID = utils.GenerateUUIDv7()
		}
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
		if t.UpdatedAt.IsZero() {
			t.UpdatedAt = now
		}
		ms = append(ms, models.Token{
			ID:                   t.ID,
			SmartContractID:      t.SmartContractID,
			TokenNumber:          t.TokenNumber,
			Type:                 string(t.Type),
			URI:                  t.URI,
			Name:                 t.Name,
			Symbol:               t.Symbol,
			Decimals:             t.Decimals,
			TotalSupply:          t.TotalSupply,
			UpdateNotificationID: t.UpdateNotificationID,
			CreatedAt:            t.CreatedAt,
			UpdatedAt:            t.UpdatedAt,
		})
	}
	return GetDB(ctx, r.db).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "smart_contract_id"}, {Name: "token_number"}},
			DoNothing: true,
		}).
		CreateInBatches(ms, 500).Error
}

func (r *TokenRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Token, error) {
	var m models.Token
	if err := GetDB(ctx, r.db).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrTokenNotFound
		}
		return nil, err
	}
	return toTokenEntity(&m), nil
}

func (r *TokenRepository) GetByNumber(ctx context.Context, contractID uuid.UUID, tokenNumber int64) (*entities.Token, error) {
	var m models.Token
	if err := GetDB(ctx, r.db).
		Where("smart_contract_id = ? AND token_number = ?", contractID, tokenNumber).
		First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrTokenNotFound
		}
		return nil, err
	}
	return toTokenEntity(&m), nil
}

func (r *TokenRepository) ListByContract(ctx context.Context, contractID uuid.UUID) ([]*entities.Token, error) {
	var ms []models.Token
	if err := GetDB(ctx, r.db).
		Where("smart_contract_id = ?", contractID).
		Order("token_number ASC").
		Find(&ms).Error; err != nil {
		return nil, err
	}
	return toTokenEntities(ms), nil
}

func (r *TokenRepository) ListByNumbers(ctx context.Context, contractID uuid.UUID, numbers []int64) ([]*entities.Token, error) {
	if len(numbers) == 0 {
		return nil, nil
	}
	var ms []models.Token
	if err := GetDB(ctx, r.db).
		Where("smart_contract_id = ? AND token_number IN ?", contractID, numbers).
		Order("token_number ASC").
		Find(&ms).Error; err != nil {
		return nil, err
	}
	return toTokenEntities(ms), nil
}

func (r *TokenRepository) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	return GetDB(ctx, r.db).Model(&models.Token{}).
		Where("id = ?", id).
		Update("updated_at", at).Error
}

func (r *TokenRepository) SetURI(ctx context.Context, id uuid.UUID, uri string) error {
	return GetDB(ctx, r.db).Model(&models.Token{}).
		Where("id = ?", id).
		Update("uri", uri).Error
}

func (r *TokenRepository) SetUpdateNotification(ctx context.Context, tokenID, notificationID uuid.UUID) error {
	return GetDB(ctx, r.db).Model(&models.Token{}).
		Where("id = ?", tokenID).
		Update("update_notification_id", notificationID).Error
}

func (r *TokenRepository) ListDynamic(ctx context.Context) ([]*entities.DynamicToken, error) {
	db := GetDB(ctx, r.db)
	dynamicIDs := db.Session(&gorm.Session{NewDB: true}).
		Model(&models.UpdateNotification{}).
		Select("id").
		Where("update_mode = ?", string(entities.UpdateModeDynamic))
	frozenIDs := db.Session(&gorm.Session{NewDB: true}).
		Model(&models.FrozenToken{}).
		Select("token_id")

	var ms []models.Token
	if err := db.
		Where("update_notification_id IN (?)", dynamicIDs).
		Where("id NOT IN (?)", frozenIDs).
		Order("updated_at ASC").
		Find(&ms).Error; err != nil {
		return nil, err
	}
	if len(ms) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, 0, len(ms))
	for _, m := range ms {
		ids = append(ids, m.UpdateNotificationID.UUID)
	}
	var ns []models.UpdateNotification
	if err := db.Session(&gorm.Session{NewDB: true}).Where("id IN ?", ids).Find(&ns).Error; err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*models.UpdateNotification, len(ns))
	for i := range ns {
		byID[ns[i].ID] = &ns[i]
	}

	out := make([]*entities.DynamicToken, 0, len(ms))
	for i := range ms {
		n, ok := byID[ms[i].UpdateNotificationID.UUID]
		if !ok {
			continue
		}
		out = append(out, &entities.DynamicToken{
			Token:        *toTokenEntity(&ms[i]),
			Notification: *toNotificationEntity(n),
		})
	}
	return out, nil
}

func (r *TokenRepository) CountByType(ctx context.Context) (map[entities.TokenType]int64, error) {
	var rows []struct {
		Type  string `gorm:"column:type"`
		Count int64  `gorm:"column:count"`
	}
	if err := GetDB(ctx, r.db).Model(&models.Token{}).
		Select("type, COUNT(*) AS count").
		Group("type").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[entities.TokenType]int64, len(rows))
	for _, row := range rows {
		out[entities.TokenType(row.Type)] = row.Count
	}
	return out, nil
}

func toTokenEntities(ms []models.Token) []*entities.Token {
	out := make([]*entities.Token, 0, len(ms))
	for i := range ms {
		out = append(out, toTokenEntity(&ms[i]))
	}
	return out
}

func toTokenEntity(m *models.Token) *entities.Token {
	return &entities.Token{
		ID:                   m.ID,
		SmartContractID:      m.SmartContractID,
		Type:                 entities.TokenType(m.Type),
		TokenNumber:          m.TokenNumber,
		URI:                  m.URI,
		Name:                 m.Name,
		Symbol:               m.Symbol,
		Decimals:             m.Decimals,
		TotalSupply:          m.TotalSupply,
		UpdateNotificationID: m.UpdateNotificationID,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}
}

// FrozenTokenRepository implements FrozenTokenRepository
type FrozenTokenRepository struct {
	db *gorm.DB
}

func NewFrozenTokenRepository(db *gorm.DB) *FrozenTokenRepository {
	return &FrozenTokenRepository{db: db}
}

func (r *FrozenTokenRepository) Freeze(ctx context.Context, tokenID uuid.UUID, at time.Time) (bool, error) {
	res := GetDB(ctx, r.db).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "token_id"}}, DoNothing: true}).
		Create(&models.FrozenToken{TokenID: tokenID, CreatedAt: at})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *FrozenTokenRepository) IsFrozen(ctx context.Context, tokenID uuid.UUID) (bool, error) {
	var count int64
	if err := GetDB(ctx, r.db).Model(&models.FrozenToken{}).
		Where("token_id = ?", tokenID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *FrozenTokenRepository) Unfreeze(ctx context.Context, tokenIDs []uuid.UUID) (int64, error) {
	if len(tokenIDs) == 0 {
		return 0, nil
	}
	res := GetDB(ctx, r.db).Where("token_id IN ?", tokenIDs).Delete(&models.FrozenToken{})
	return res.RowsAffected, res.Error
}
