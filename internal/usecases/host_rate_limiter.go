package usecases

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	domainerrors "token-metadata.backend/internal/domain/errors"
	"token-metadata.backend/internal/domain/entities"
	"token-metadata.backend/internal/domain/repositories"
	"token-metadata.backend/internal/metrics"
	"token-metadata.backend/pkg/logger"
)

// HostRateLimiter keeps the set of metadata hosts that asked us to back off.
type HostRateLimiter struct {
	repo           repositories.RateLimitedHostRepository
	defaultPenalty time.Duration
	now            Clock
}

func NewHostRateLimiter(repo repositories.RateLimitedHostRepository, defaultPenalty time.Duration, now Clock) *HostRateLimiter {
	return &HostRateLimiter{repo: repo, defaultPenalty: defaultPenalty, now: clockOrDefault(now)}
}

// CheckHost reports whether requests to host are allowed right now.
func (l *HostRateLimiter) CheckHost(ctx context.Context, host string) (bool, error) {
	until, err := l.BlockedUntil(ctx, host)
	if err != nil {
		return false, err
	}
	return until.IsZero(), nil
}

// BlockedUntil returns when host may be contacted again, or the zero time when it is not limited.
func (l *HostRateLimiter) BlockedUntil(ctx context.Context, host string) (time.Time, error) {
	host = strings.ToLower(host)
	if host == "" {
		return time.Time{}, nil
	}
	entry, err := l.repo.Get(ctx, host)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return time.Time{}, nil
		}
		return time.Time{}, err
	}
	if !entry.Active(l.now()) {
		return time.Time{}, nil
	}
	return entry.RetryAfter, nil
}

// Penalize blocks host for retryAfter, or the default penalty when retryAfter is not positive.
// An existing later deadline is never shortened.
func (l *HostRateLimiter) Penalize(ctx context.Context, host string, retryAfter time.Duration) error {
	host = strings.ToLower(host)
	if host == "" {
		return nil
	}
	if retryAfter <= 0 {
		retryAfter = l.defaultPenalty
	}
	now := l.now()
	if err := l.repo.Upsert(ctx, host, now.Add(retryAfter), now); err != nil {
		return err
	}
	metrics.HostPenalties.Inc()
	logger.Warn(ctx, "Metadata host rate limited",
		zap.String("host", host),
		zap.Duration("retryAfter", retryAfter),
	)
	return nil
}

// LimitedHosts returns the active penalties keyed by host.
func (l *HostRateLimiter) LimitedHosts(ctx context.Context) (map[string]time.Time, error) {
	active, err := l.repo.ListActive(ctx, l.now())
	if err != nil {
		return nil, err
	}
	out := make(map[string]time.Time, len(active))
	for _, h := range active {
		out[h.Hostname] = h.RetryAfter
	}
	return out, nil
}

func (l *HostRateLimiter) ListActive(ctx context.Context) ([]*entities.RateLimitedHost, error) {
	return l.repo.ListActive(ctx, l.now())
}

// Purge drops expired penalties.
func (l *HostRateLimiter) Purge(ctx context.Context) (int64, error) {
	return l.repo.DeleteExpired(ctx, l.now())
}
