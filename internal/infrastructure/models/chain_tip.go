package models

import "time"

// ChainTipID is the primary key of the only chain_tip row.
const ChainTipID = 1

type ChainTip struct {
	ID                        int       `gorm:"primaryKey;autoIncrement:false;check:id = 1"`
	BlockHeight               int64     `gorm:"not null;default:0"`
	LastDynamicTokenRefreshAt time.Time `gorm:"not null"`
	UpdatedAt                 time.Time `gorm:"autoUpdateTime:false;not null"`
}

func (ChainTip) TableName() string {
	return "chain_tip"
}

type RateLimitedHost struct {
	Hostname   string    `gorm:"type:text;primaryKey"`
	RetryAfter time.Time `gorm:"not null;index"`
	CreatedAt  time.Time
	UpdatedAt  time.Time `gorm:"autoUpdateTime:false"`
}

func (RateLimitedHost) TableName() string {
	return "rate_limited_hosts"
}
