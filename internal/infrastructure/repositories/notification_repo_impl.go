package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"token-metadata.backend/internal/domain/entities"
	domainerrors "token-metadata.backend/internal/domain/errors"
	"token-metadata.backend/internal/infrastructure/models"
)

// NotificationRepository implements NotificationRepository
type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Insert(ctx context.Context, n *entities.Notification) (bool, error) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	m := &models.UpdateNotification{
		ID:              n.ID,
		SmartContractID: n.SmartContractID,
		TokenID:         n.TokenID,
		BlockHeight:     n.BlockHeight,
		IndexBlockHash:  n.IndexBlockHash,
		TxID:            n.TxID,
		TxIndex:         n.TxIndex,
		EventIndex:      n.EventIndex,
		UpdateMode:      string(n.UpdateMode),
		TTL:             n.TTL,
		CreatedAt:       n.CreatedAt,
	}
	res := GetDB(ctx, r.db).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(m)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *NotificationRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Notification, error) {
	var m models.UpdateNotification
	if err := GetDB(ctx, r.db).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return toNotificationEntity(&m), nil
}

func toNotificationEntity(m *models.UpdateNotification) *entities.Notification {
	return &entities.Notification{
		ID:              m.ID,
		SmartContractID: m.SmartContractID,
		TokenID:         m.TokenID,
		BlockHeight:     m.BlockHeight,
		IndexBlockHash:  m.IndexBlockHash,
		TxID:            m.TxID,
		TxIndex:         m.TxIndex,
		EventIndex:      m.EventIndex,
		UpdateMode:      entities.UpdateMode(m.UpdateMode),
		TTL:             m.TTL,
		CreatedAt:       m.CreatedAt,
	}
}
