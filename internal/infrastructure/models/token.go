package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"
)

type Token struct {
	ID                   uuid.UUID           `gorm:"type:uuid;primaryKey"`
	SmartContractID      uuid.UUID           `gorm:"type:uuid;not null;uniqueIndex:idx_tokens_contract_number,priority:1"`
	TokenNumber          int64               `gorm:"not null;uniqueIndex:idx_tokens_contract_number,priority:2"`
	Type                 string              `gorm:"type:text;not null;index"`
	URI                  null.String         `gorm:"column:uri;type:text"`
	Name                 null.String         `gorm:"type:text"`
	Symbol               null.String         `gorm:"type:text"`
	Decimals             null.Int            `gorm:"type:integer"`
	TotalSupply          decimal.NullDecimal `gorm:"type:numeric(39,0)"`
	UpdateNotificationID uuid.NullUUID       `gorm:"type:uuid"`
	CreatedAt            time.Time
	UpdatedAt            time.Time `gorm:"autoUpdateTime:false"`

	SmartContract SmartContract `gorm:"foreignKey:SmartContractID;constraint:OnDelete:CASCADE"`
}

func (Token) TableName() string {
	return "tokens"
}

// FrozenToken marks a token excluded from automatic refreshes.
type FrozenToken struct {
	TokenID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time
}

func (FrozenToken) TableName() string {
	return "frozen_tokens"
}
