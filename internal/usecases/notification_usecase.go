package usecases

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"token-metadata.backend/internal/domain/entities"
	domainerrors "token-metadata.backend/internal/domain/errors"
	"token-metadata.backend/internal/domain/repositories"
	"token-metadata.backend/internal/metrics"
	"token-metadata.backend/pkg/logger"
)

// Enqueuer schedules refresh jobs
type Enqueuer interface {
	Enqueue(ctx context.Context, target entities.JobTarget) (bool, error)
}

// RefreshConfig holds the dynamic refresh policy
type RefreshConfig struct {
	DynamicDefaultTTL time.Duration
	SweepInterval     time.Duration
}

// NotificationTracker applies metadata update notifications and decides which
// tokens get refresh jobs.
type NotificationTracker struct {
	tokens        repositories.TokenRepository
	frozen        repositories.FrozenTokenRepository
	notifications repositories.NotificationRepository
	chainTip      repositories.ChainTipRepository
	queue         Enqueuer
	uow           repositories.UnitOfWork
	cfg           RefreshConfig
	now           Clock
}

func NewNotificationTracker(
	tokens repositories.TokenRepository,
	frozen repositories.FrozenTokenRepository,
	notifications repositories.NotificationRepository,
	chainTip repositories.ChainTipRepository,
	queue Enqueuer,
	uow repositories.UnitOfWork,
	cfg RefreshConfig,
	now Clock,
) *NotificationTracker {
	return &NotificationTracker{
		tokens:        tokens,
		frozen:        frozen,
		notifications: notifications,
		chainTip:      chainTip,
		queue:         queue,
		uow:           uow,
		cfg:           cfg,
		now:           clockOrDefault(now),
	}
}

// Apply processes notifications in chain order, so the last event for a token decides its mode.
// It returns the number of jobs created.
func (t *NotificationTracker) Apply(ctx context.Context, batch []*entities.Notification) (int, error) {
	sorted := make([]*entities.Notification, len(batch))
	copy(sorted, batch)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	enqueued := 0
	err := t.uow.Do(ctx, func(ctx context.Context) error {
		for _, n := range sorted {
			created, err := t.applyOne(ctx, n)
			if err != nil {
				return err
			}
			if created {
				enqueued++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return enqueued, nil
}

func (t *NotificationTracker) applyOne(ctx context.Context, n *entities.Notification) (bool, error) {
	if !n.UpdateMode.Valid() {
		n.UpdateMode = entities.UpdateModeStandard
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = t.now()
	}

	inserted, err := t.notifications.Insert(ctx, n)
	if err != nil {
		return false, err
	}
	if !inserted {
		logger.Debug(ctx, "Skipping duplicate notification",
			zap.String("txId", n.TxID),
			zap.Int("eventIndex", n.EventIndex),
		)
		return false, nil
	}

	token, err := t.tokens.GetByID(ctx, n.TokenID)
	if err != nil {
		return false, err
	}

	if token.UpdateNotificationID.Valid {
		current, err := t.notifications.GetByID(ctx, token.UpdateNotificationID.UUID)
		if err != nil && !errors.Is(err, domainerrors.ErrNotFound) {
			return false, err
		}
		if current != nil && n.Before(current) {
			// backfilled event, the newer one keeps deciding the mode
			return false, nil
		}
	}

	if err := t.tokens.SetUpdateNotification(ctx, token.ID, n.ID); err != nil {
		return false, err
	}
	metrics.NotificationsApplied.WithLabelValues(string(n.UpdateMode)).Inc()

	frozen, err := t.frozen.IsFrozen(ctx, token.ID)
	if err != nil {
		return false, err
	}
	if frozen {
		return false, nil
	}

	created, err := t.queue.Enqueue(ctx, entities.TokenTarget(token.ID))
	if err != nil {
		return false, err
	}
	if n.UpdateMode == entities.UpdateModeFrozen {
		// the job above is the final automatic refresh
		if _, err := t.frozen.Freeze(ctx, token.ID, t.now()); err != nil {
			return false, err
		}
	}
	return created, nil
}

// SweepDynamicTokens enqueues refreshes for dynamic tokens whose ttl elapsed. Only one
// caller wins a given sweep window; the others return zero without touching any token.
func (t *NotificationTracker) SweepDynamicTokens(ctx context.Context) (int, error) {
	tip, err := t.chainTip.Get(ctx)
	if err != nil {
		return 0, err
	}
	now := t.now()
	if now.Sub(tip.LastDynamicTokenRefreshAt) < t.cfg.SweepInterval {
		metrics.DynamicSweeps.WithLabelValues("skipped").Inc()
		return 0, nil
	}

	won, err := t.chainTip.SwapDynamicRefresh(ctx, tip.LastDynamicTokenRefreshAt, now)
	if err != nil {
		return 0, err
	}
	if !won {
		metrics.DynamicSweeps.WithLabelValues("lost").Inc()
		return 0, nil
	}

	dynamic, err := t.tokens.ListDynamic(ctx)
	if err != nil {
		return 0, err
	}

	enqueued := 0
	for _, d := range dynamic {
		ttl := d.Notification.TTLDuration(t.cfg.DynamicDefaultTTL)
		if now.Sub(d.Token.UpdatedAt) < ttl {
			continue
		}
		created, err := t.queue.Enqueue(ctx, entities.TokenTarget(d.Token.ID))
		if err != nil {
			return enqueued, err
		}
		if created {
			enqueued++
		}
	}

	metrics.DynamicSweeps.WithLabelValues("ran").Inc()
	if enqueued > 0 {
		logger.Info(ctx, "Dynamic token sweep enqueued refreshes", zap.Int("count", enqueued))
	}
	return enqueued, nil
}

// UnfreezeTokens clears frozen markers ahead of an explicit refresh.
func (t *NotificationTracker) UnfreezeTokens(ctx context.Context, tokenIDs []uuid.UUID) (int64, error) {
	if len(tokenIDs) == 0 {
		return 0, nil
	}
	return t.frozen.Unfreeze(ctx, tokenIDs)
}
