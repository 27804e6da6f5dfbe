package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"token-metadata.backend/internal/domain/entities"
)

// NotificationRepository stores update notifications
type NotificationRepository interface {
	// Insert skips notifications already stored under the same chain event key.
	Insert(ctx context.Context, n *entities.Notification) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Notification, error)
}

// RateLimitedHostRepository stores host penalties
type RateLimitedHostRepository interface {
	// Upsert keeps the later of the stored and given retry_after.
	Upsert(ctx context.Context, hostname string, retryAfter, at time.Time) error
	Get(ctx context.Context, hostname string) (*entities.RateLimitedHost, error)
	ListActive(ctx context.Context, now time.Time) ([]*entities.RateLimitedHost, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// ChainTipRepository stores the single chain tip row
type ChainTipRepository interface {
	// Init creates the row at height 0 if it does not exist.
	Init(ctx context.Context, at time.Time) error
	Get(ctx context.Context) (*entities.ChainTip, error)
	// Advance sets the height only when it is greater than the stored one.
	Advance(ctx context.Context, height int64, at time.Time) (bool, error)
	// SwapDynamicRefresh sets last_dynamic_token_refresh_at to next if it still equals expected.
	SwapDynamicRefresh(ctx context.Context, expected, next time.Time) (bool, error)
}
