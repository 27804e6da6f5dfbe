package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"token-metadata.backend/internal/domain/entities"
)

// MetadataRepository stores normalized metadata records
type MetadataRepository interface {
	// ReplaceForToken swaps every record of the token for the given ones.
	ReplaceForToken(ctx context.Context, tokenID uuid.UUID, records []*entities.MetadataRecord) error
	ListByToken(ctx context.Context, tokenID uuid.UUID) ([]*entities.MetadataRecord, error)
	// GetForLocale returns ErrNotFound when the token has no record for locale.
	// An invalid locale selects the default record.
	GetForLocale(ctx context.Context, tokenID uuid.UUID, locale null.String) (*entities.MetadataRecord, error)
	// LastModified returns the newest of the token's and its records' updated_at.
	LastModified(ctx context.Context, principal string, tokenNumber int64) (time.Time, error)
}
