package usecases

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"token-metadata.backend/internal/domain/entities"
	domainerrors "token-metadata.backend/internal/domain/errors"
	"token-metadata.backend/internal/domain/repositories"
	"token-metadata.backend/pkg/logger"
	"token-metadata.backend/pkg/utils"
)

const retryFailedBatch = 500

// RefreshInput requests an explicit metadata refresh
type RefreshInput struct {
	Principal string `json:"principal" binding:"required"`
	// TokenNumbers empty refreshes every token of the contract.
	TokenNumbers []int64 `json:"tokenNumbers"`
}

// RefreshResult reports what a refresh request scheduled
type RefreshResult struct {
	Tokens           int   `json:"tokens"`
	Unfrozen         int64 `json:"unfrozen"`
	Enqueued         int   `json:"enqueued"`
	ContractReimport bool  `json:"contractReimport"`
}

// AdminUsecase serves operator actions. Refreshes requested here are the only way
// a frozen token is fetched again.
type AdminUsecase struct {
	contracts repositories.SmartContractRepository
	tokens    repositories.TokenRepository
	jobs      repositories.JobRepository
	tracker   *NotificationTracker
	queue     Enqueuer
	hosts     *HostRateLimiter
	uow       repositories.UnitOfWork
}

func NewAdminUsecase(
	contracts repositories.SmartContractRepository,
	tokens repositories.TokenRepository,
	jobs repositories.JobRepository,
	tracker *NotificationTracker,
	queue Enqueuer,
	hosts *HostRateLimiter,
	uow repositories.UnitOfWork,
) *AdminUsecase {
	return &AdminUsecase{
		contracts: contracts,
		tokens:    tokens,
		jobs:      jobs,
		tracker:   tracker,
		queue:     queue,
		hosts:     hosts,
		uow:       uow,
	}
}

// RefreshTokens unfreezes and enqueues the selected tokens. A contract with no
// tokens yet gets a contract import job instead.
func (u *AdminUsecase) RefreshTokens(ctx context.Context, in *RefreshInput) (*RefreshResult, error) {
	if in == nil || !entities.IsContractPrincipal(in.Principal) {
		return nil, domainerrors.BadRequest("a valid contract principal is required")
	}
	contract, err := u.contracts.GetByPrincipal(ctx, in.Principal)
	if err != nil {
		return nil, notFoundAsToken(err)
	}

	result := &RefreshResult{}
	err = u.uow.Do(ctx, func(ctx context.Context) error {
		var tokens []*entities.Token
		var err error
		if len(in.TokenNumbers) == 0 {
			tokens, err = u.tokens.ListByContract(ctx, contract.ID)
		} else {
			tokens, err = u.tokens.ListByNumbers(ctx, contract.ID, in.TokenNumbers)
		}
		if err != nil {
			return err
		}

		if len(tokens) == 0 {
			if len(in.TokenNumbers) > 0 {
				return domainerrors.ErrTokenNotFound
			}
			created, err := u.queue.Enqueue(ctx, entities.ContractTarget(contract.ID))
			if err != nil {
				return err
			}
			result.ContractReimport = true
			if created {
				result.Enqueued++
			}
			return nil
		}

		ids := make([]uuid.UUID, 0, len(tokens))
		for _, t := range tokens {
			ids = append(ids, t.ID)
		}
		if result.Unfrozen, err = u.tracker.UnfreezeTokens(ctx, ids); err != nil {
			return err
		}
		for _, id := range ids {
			created, err := u.queue.Enqueue(ctx, entities.TokenTarget(id))
			if err != nil {
				return err
			}
			if created {
				result.Enqueued++
			}
		}
		result.Tokens = len(tokens)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "Manual refresh requested",
		zap.String("principal", in.Principal),
		zap.Int("tokens", result.Tokens),
		zap.Int("enqueued", result.Enqueued),
		zap.Int64("unfrozen", result.Unfrozen),
	)
	return result, nil
}

// RetryFailed enqueues a new job for every target whose latest job failed.
func (u *AdminUsecase) RetryFailed(ctx context.Context) (int, error) {
	targets, err := u.jobs.ListFailedTargets(ctx, retryFailedBatch)
	if err != nil {
		return 0, err
	}
	enqueued := 0
	for _, target := range targets {
		created, err := u.queue.Enqueue(ctx, target)
		if err != nil {
			return enqueued, err
		}
		if created {
			enqueued++
		}
	}
	return enqueued, nil
}

func (u *AdminUsecase) ListJobs(ctx context.Context, status string, pagination utils.PaginationParams) ([]*entities.Job, int64, error) {
	filter := entities.JobFilter{}
	if status != "" {
		s := entities.JobStatus(status)
		switch s {
		case entities.JobStatusPending, entities.JobStatusQueued, entities.JobStatusDone, entities.JobStatusFailed:
		default:
			return nil, 0, domainerrors.BadRequest("unknown job status")
		}
		filter.Status = &s
	}
	return u.jobs.List(ctx, filter, pagination)
}

func (u *AdminUsecase) ListRateLimitedHosts(ctx context.Context) ([]*entities.RateLimitedHost, error) {
	return u.hosts.ListActive(ctx)
}
