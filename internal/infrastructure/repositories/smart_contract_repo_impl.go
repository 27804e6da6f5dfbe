package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"token-metadata.backend/internal/domain/entities"
	domainerrors "token-metadata.backend/internal/domain/errors"
	"token-metadata.backend/internal/infrastructure/models"
)

// SmartContractRepository implements smart contract data operations
type SmartContractRepository struct {
	db *gorm.DB
}

// NewSmartContractRepository creates a new smart contract repository
func NewSmartContractRepository(db *gorm.DB) *SmartContractRepository {
	return &SmartContractRepository{db: db}
}

// Create inserts the contract, skipping principals that are already indexed
func (r *SmartContractRepository) Create(ctx context.Context, contract *entities.SmartContract) (bool, error) {
	if contract.ID == uuid.Nil {
		contract.ID = uuid.New()
	}
	now := time.Now().UTC()
	if contract.CreatedAt.IsZero() {
		contract.CreatedAt = now
	}
	contract.UpdatedAt = now

	m := &models.SmartContract{
		ID:          contract.ID,
		Principal:   contract.Principal,
		SIP:         string(contract.SIP),
		ABI:         datatypes.JSON(contract.ABI),
		TxID:        contract.TxID,
		BlockHeight: contract.BlockHeight,
		TokenCount:  contract.TokenCount,
		TokenURI:    contract.TokenURI,
		CreatedAt:   contract.CreatedAt,
		UpdatedAt:   contract.UpdatedAt,
	}
	res := GetDB(ctx, r.db).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "principal"}}, DoNothing: true}).
		Create(m)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// GetByID gets a smart contract by ID
func (r *SmartContractRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.SmartContract, error) {
	var m models.SmartContract
	if err := GetDB(ctx, r.db).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return toSmartContractEntity(&m), nil
}

// GetByPrincipal gets a smart contract by its principal
func (r *SmartContractRepository) GetByPrincipal(ctx context.Context, principal string) (*entities.SmartContract, error) {
	var m models.SmartContract
	if err := GetDB(ctx, r.db).Where("principal = ?", principal).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return toSmartContractEntity(&m), nil
}

func (r *SmartContractRepository) RaiseTokenCount(ctx context.Context, id uuid.UUID, count int64) error {
	return GetDB(ctx, r.db).Model(&models.SmartContract{}).
		Where("id = ? AND token_count < ?", id, count).
		Updates(map[string]interface{}{
			"token_count": count,
			"updated_at":  time.Now().UTC(),
		}).Error
}

func (r *SmartContractRepository) CountBySIP(ctx context.Context) (map[entities.SIP]int64, error) {
	var rows []struct {
		SIP   string `gorm:"column:sip"`
		Count int64  `gorm:"column:count"`
	}
	if err := GetDB(ctx, r.db).Model(&models.SmartContract{}).
		Select("sip, COUNT(*) AS count").
		Group("sip").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[entities.SIP]int64, len(rows))
	for _, row := range rows {
		out[entities.SIP(row.SIP)] = row.Count
	}
	return out, nil
}

func toSmartContractEntity(m *models.SmartContract) *entities.SmartContract {
	return &entities.SmartContract{
		ID:          m.ID,
		Principal:   m.Principal,
		SIP:         entities.SIP(m.SIP),
		ABI:         []byte(m.ABI),
		TxID:        m.TxID,
		BlockHeight: m.BlockHeight,
		TokenCount:  m.TokenCount,
		TokenURI:    m.TokenURI,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}
