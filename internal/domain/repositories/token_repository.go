package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"token-metadata.backend/internal/domain/entities"
)

// TokenRepository defines token data operations
type TokenRepository interface {
	// InsertMissing inserts tokens whose (contract, number) pair does not exist yet.
	InsertMissing(ctx context.Context, tokens []*entities.Token) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Token, error)
	GetByNumber(ctx context.Context, contractID uuid.UUID, tokenNumber int64) (*entities.Token, error)
	ListByContract(ctx context.Context, contractID uuid.UUID) ([]*entities.Token, error)
	ListByNumbers(ctx context.Context, contractID uuid.UUID, numbers []int64) ([]*entities.Token, error)
	// Touch bumps updated_at after a successful refresh.
	Touch(ctx context.Context, id uuid.UUID, at time.Time) error
	SetURI(ctx context.Context, id uuid.UUID, uri string) error
	SetUpdateNotification(ctx context.Context, tokenID, notificationID uuid.UUID) error
	// ListDynamic returns non-frozen tokens whose current notification is dynamic.
	ListDynamic(ctx context.Context) ([]*entities.DynamicToken, error)
	CountByType(ctx context.Context) (map[entities.TokenType]int64, error)
}

// FrozenTokenRepository tracks tokens excluded from automatic refreshes
type FrozenTokenRepository interface {
	// Freeze returns false when the token was already frozen.
	Freeze(ctx context.Context, tokenID uuid.UUID, at time.Time) (bool, error)
	IsFrozen(ctx context.Context, tokenID uuid.UUID) (bool, error)
	Unfreeze(ctx context.Context, tokenIDs []uuid.UUID) (int64, error)
}
