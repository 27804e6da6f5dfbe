package usecases

import (
	"context"

	"go.uber.org/zap"
	"token-metadata.backend/internal/domain/entities"
	"token-metadata.backend/internal/domain/repositories"
	"token-metadata.backend/internal/metrics"
	"token-metadata.backend/pkg/logger"
)

// ChainTipTracker guards the single chain tip record. Init must run once at startup
// before any block is ingested.
type ChainTipTracker struct {
	repo repositories.ChainTipRepository
	now  Clock
}

func NewChainTipTracker(repo repositories.ChainTipRepository, now Clock) *ChainTipTracker {
	return &ChainTipTracker{repo: repo, now: clockOrDefault(now)}
}

func (t *ChainTipTracker) Init(ctx context.Context) error {
	if err := t.repo.Init(ctx, t.now()); err != nil {
		return err
	}
	tip, err := t.repo.Get(ctx)
	if err != nil {
		return err
	}
	metrics.ChainTipHeight.Set(float64(tip.BlockHeight))
	return nil
}

func (t *ChainTipTracker) Current(ctx context.Context) (*entities.ChainTip, error) {
	return t.repo.Get(ctx)
}

// Advance moves the tip to height. Heights at or behind the tip are logged and ignored.
func (t *ChainTipTracker) Advance(ctx context.Context, height int64) (bool, error) {
	moved, err := t.repo.Advance(ctx, height, t.now())
	if err != nil {
		return false, err
	}
	if !moved {
		logger.Warn(ctx, "Ignoring block at or behind chain tip", zap.Int64("blockHeight", height))
		return false, nil
	}
	metrics.ChainTipHeight.Set(float64(height))
	return true, nil
}
