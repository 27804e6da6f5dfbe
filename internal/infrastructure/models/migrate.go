package models

import (
	"fmt"

	"gorm.io/gorm"
)

// partialIndexes cannot be expressed with struct tags. Both postgres and sqlite accept them.
var partialIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_jobs_token_active ON jobs (token_id) WHERE status IN ('pending', 'queued') AND token_id IS NOT NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_jobs_contract_active ON jobs (smart_contract_id) WHERE status IN ('pending', 'queued') AND smart_contract_id IS NOT NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_metadata_token_locale ON metadata (token_id, COALESCE(locale, ''))`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_pending_created ON jobs (created_at) WHERE status = 'pending'`,
}

// All returns every persisted model in dependency order.
func All() []interface{} {
	return []interface{}{
		&SmartContract{},
		&Token{},
		&FrozenToken{},
		&Metadata{},
		&MetadataAttribute{},
		&MetadataProperty{},
		&Job{},
		&UpdateNotification{},
		&RateLimitedHost{},
		&ChainTip{},
	}
}

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	for _, stmt := range partialIndexes {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}
