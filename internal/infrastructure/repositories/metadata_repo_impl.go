package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"token-metadata.backend/internal/domain/entities"
	domainerrors "token-metadata.backend/internal/domain/errors"
	"token-metadata.backend/internal/infrastructure/models"
	"token-metadata.backend/pkg/utils"
)

// MetadataRepository implements MetadataRepository
type MetadataRepository struct {
	db *gorm.DB
}

func NewMetadataRepository(db *gorm.DB) *MetadataRepository {
	return &MetadataRepository{db: db}
}

// ReplaceForToken should run inside a unit of work so readers never see a partial set.
func (r *MetadataRepository) ReplaceForToken(ctx context.Context, tokenID uuid.UUID, records []*entities.MetadataRecord) error {
	db := GetDB(ctx, r.db)

	old := db.Session(&gorm.Session{NewDB: true}).
		Model(&models.Metadata{}).
		Select("id").
		Where("token_id = ?", tokenID)
	if err := db.Where("metadata_id IN (?)", old).Delete(&models.MetadataAttribute{}).Error; err != nil {
		return err
	}
	if err := db.Where("metadata_id IN (?)", old).Delete(&models.MetadataProperty{}).Error; err != nil {
		return err
	}
	if err := db.Where("token_id = ?", tokenID).Delete(&models.Metadata{}).Error; err != nil {
		return err
	}

	now := time.Now().UTC()
	for _, rec := range records {
		rec.ID = utils.GenerateUUIDv7()
		rec.TokenID = tokenID
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = now
		}
		if rec.UpdatedAt.IsZero() {
			rec.UpdatedAt = now
		}
		m := toMetadataModel(rec)
		if err := db.Create(m).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *MetadataRepository) ListByToken(ctx context.Context, tokenID uuid.UUID) ([]*entities.MetadataRecord, error) {
	var ms []models.Metadata
	if err := r.withChildren(GetDB(ctx, r.db)).
		Where("token_id = ?", tokenID).
		Order("locale ASC").
		Find(&ms).Error; err != nil {
		return nil, err
	}
	out := make([]*entities.MetadataRecord, 0, len(ms))
	for i := range ms {
		out = append(out, toMetadataEntity(&ms[i]))
	}
	return out, nil
}

func (r *MetadataRepository) GetForLocale(ctx context.Context, tokenID uuid.UUID, locale null.String) (*entities.MetadataRecord, error) {
	q := r.withChildren(GetDB(ctx, r.db)).Where("token_id = ?", tokenID)
	if locale.Valid && locale.String != "" {
		q = q.Where("locale = ?", locale.String)
	} else {
		q = q.Where("locale IS NULL")
	}
	var m models.Metadata
	if err := q.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return toMetadataEntity(&m), nil
}

func (r *MetadataRepository) LastModified(ctx context.Context, principal string, tokenNumber int64) (time.Time, error) {
	db := GetDB(ctx, r.db)

	var tok models.Token
	err := db.Model(&models.Token{}).
		Joins("JOIN smart_contracts ON smart_contracts.id = tokens.smart_contract_id").
		Where("smart_contracts.principal = ? AND tokens.token_number = ?", principal, tokenNumber).
		Select("tokens.id", "tokens.updated_at").
		First(&tok).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return time.Time{}, domainerrors.ErrTokenNotFound
		}
		return time.Time{}, err
	}

	var times []time.Time
	if err := db.Session(&gorm.Session{NewDB: true}).
		Model(&models.Metadata{}).
		Where("token_id = ?", tok.ID).
		Order("updated_at DESC").
		Limit(1).
		Pluck("updated_at", &times).Error; err != nil {
		return time.Time{}, err
	}

	last := tok.UpdatedAt
	if len(times) == 1 && times[0].After(last) {
		last = times[0]
	}
	return last, nil
}

func (r *MetadataRepository) withChildren(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Attributes", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Properties", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") })
}

func toMetadataModel(rec *entities.MetadataRecord) *models.Metadata {
	m := &models.Metadata{
		ID:                   rec.ID,
		TokenID:              rec.TokenID,
		SIP:                  rec.SIP,
		Name:                 rec.Name,
		Description:          rec.Description,
		Image:                rec.Image,
		CachedImage:          rec.CachedImage,
		CachedThumbnailImage: rec.CachedThumbnailImage,
		CreatedAt:            rec.CreatedAt,
		UpdatedAt:            rec.UpdatedAt,
	}
	if !rec.IsDefault() {
		m.Locale = rec.Locale
	} else {
		m.DefaultLocale = rec.DefaultLocale
	}
	for i, a := range rec.Attributes {
		m.Attributes = append(m.Attributes, models.MetadataAttribute{
			ID:          utils.GenerateUUIDv7(),
			MetadataID:  rec.ID,
			Position:    i,
			TraitType:   a.TraitType,
			Value:       jsonOrNull(a.Value),
			DisplayType: a.DisplayType,
		})
	}
	for i, p := range rec.Properties {
		m.Properties = append(m.Properties, models.MetadataProperty{
			ID:         utils.GenerateUUIDv7(),
			MetadataID: rec.ID,
			Position:   i,
			Name:       p.Name,
			Value:      jsonOrNull(p.Value),
		})
	}
	return m
}

func toMetadataEntity(m *models.Metadata) *entities.MetadataRecord {
	rec := &entities.MetadataRecord{
		ID:                   m.ID,
		TokenID:              m.TokenID,
		Locale:               m.Locale,
		DefaultLocale:        m.DefaultLocale,
		SIP:                  m.SIP,
		Name:                 m.Name,
		Description:          m.Description,
		Image:                m.Image,
		CachedImage:          m.CachedImage,
		CachedThumbnailImage: m.CachedThumbnailImage,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}
	for _, a := range m.Attributes {
		rec.Attributes = append(rec.Attributes, entities.MetadataAttribute{
			TraitType:   a.TraitType,
			Value:       []byte(a.Value),
			DisplayType: a.DisplayType,
		})
	}
	for _, p := range m.Properties {
		rec.Properties = append(rec.Properties, entities.MetadataProperty{
			Name:  p.Name,
			Value: []byte(p.Value),
		})
	}
	return rec
}

func jsonOrNull(raw []byte) datatypes.JSON {
	if len(raw) == 0 {
		return datatypes.JSON("null")
	}
	return datatypes.JSON(raw)
}
