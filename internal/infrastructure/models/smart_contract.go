package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"gorm.io/datatypes"
)

type SmartContract struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey"`
	Principal   string         `gorm:"type:text;not null;uniqueIndex:idx_smart_contracts_principal"`
	SIP         string         `gorm:"column:sip;type:text;not null;index"`
	ABI         datatypes.JSON `gorm:"column:abi"`
	TxID        string         `gorm:"column:tx_id;type:text;not null"`
	BlockHeight int64          `gorm:"not null"`
	TokenCount  int64          `gorm:"not null;default:0"`
	TokenURI    null.String    `gorm:"column:token_uri;type:text"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (SmartContract) TableName() string {
	return "smart_contracts"
}
