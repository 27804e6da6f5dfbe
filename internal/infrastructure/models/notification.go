package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
)

type UpdateNotification struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey"`
	SmartContractID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_update_notifications_event,priority:1"`
	TokenID         uuid.UUID  `gorm:"type:uuid;not null;index;uniqueIndex:idx_update_notifications_event,priority:2"`
	BlockHeight     int64      `gorm:"not null;uniqueIndex:idx_update_notifications_event,priority:3"`
	IndexBlockHash  string     `gorm:"type:text;not null;uniqueIndex:idx_update_notifications_event,priority:4"`
	TxID            string     `gorm:"column:tx_id;type:text;not null;uniqueIndex:idx_update_notifications_event,priority:5"`
	TxIndex         int        `gorm:"not null;uniqueIndex:idx_update_notifications_event,priority:6"`
	EventIndex      int        `gorm:"not null;uniqueIndex:idx_update_notifications_event,priority:7"`
	UpdateMode      string     `gorm:"type:text;not null"`
	TTL             null.Int64 `gorm:"column:ttl"`
	CreatedAt       time.Time
}

func (UpdateNotification) TableName() string {
	return "update_notifications"
}
