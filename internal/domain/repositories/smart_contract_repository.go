package repositories

import (
	"context"

	"github.com/google/uuid"
	"token-metadata.backend/internal/domain/entities"
)

// SmartContractRepository defines smart contract data operations
type SmartContractRepository interface {
	// Create inserts the contract unless its principal is already indexed.
	// The returned bool reports whether a row was inserted.
	Create(ctx context.Context, contract *entities.SmartContract) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entities.SmartContract, error)
	GetByPrincipal(ctx context.Context, principal string) (*entities.SmartContract, error)
	// RaiseTokenCount only ever increases token_count.
	RaiseTokenCount(ctx context.Context, id uuid.UUID, count int64) error
	CountBySIP(ctx context.Context) (map[entities.SIP]int64, error)
}
