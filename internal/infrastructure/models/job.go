package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
)

// Job references exactly one of token or smart contract.
type Job struct {
	ID              uuid.UUID     `gorm:"type:uuid;primaryKey"`
	TokenID         uuid.NullUUID `gorm:"type:uuid;index;check:(token_id IS NULL) <> (smart_contract_id IS NULL)"`
	SmartContractID uuid.NullUUID `gorm:"type:uuid;index"`
	Status          string        `gorm:"type:text;not null;index:idx_jobs_status_updated,priority:1"`
	RetryCount      int           `gorm:"not null;default:0"`
	InvalidReason   null.String   `gorm:"type:text"`
	CreatedAt       time.Time     `gorm:"autoCreateTime:false;not null"`
	UpdatedAt       time.Time     `gorm:"autoUpdateTime:false;not null;index:idx_jobs_status_updated,priority:2"`
}

func (Job) TableName() string {
	return "jobs"
}

// JobCandidate is a claimable job joined with the uri of its token, if any.
type JobCandidate struct {
	Job
	TokenURI    null.String `gorm:"column:token_uri"`
	TokenNumber null.Int64  `gorm:"column:token_number"`
}
