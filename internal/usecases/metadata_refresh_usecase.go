package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"token-metadata.backend/internal/domain/entities"
	domainerrors "token-metadata.backend/internal/domain/errors"
	"token-metadata.backend/internal/domain/repositories"
	"token-metadata.backend/internal/metrics"
	"token-metadata.backend/pkg/logger"
)

// tokenBatchSize bounds how many tokens a contract import writes per round trip.
const tokenBatchSize int64 = 500

// DefaultMaxContractTokenCount is the token ceiling used when none is configured.
const DefaultMaxContractTokenCount int64 = 100_000

func maxTokenCountOrDefault(n int64) int64 {
	if n <= 0 {
		return DefaultMaxContractTokenCount
	}
	return n
}

// EtagInvalidator drops cached validators after a token changed
type EtagInvalidator interface {
	Invalidate(ctx context.Context, principal string, tokenNumber int64)
}

// MetadataRefreshUsecase runs claimed jobs: contract jobs materialize tokens,
// token jobs fetch and store metadata.
type MetadataRefreshUsecase struct {
	contracts  repositories.SmartContractRepository
	tokens     repositories.TokenRepository
	frozen     repositories.FrozenTokenRepository
	metadata   repositories.MetadataRepository
	jobs       repositories.JobRepository
	queue      Enqueuer
	fetcher    MetadataFetcher
	normalizer *MetadataNormalizer
	hosts      *HostRateLimiter
	etags      EtagInvalidator
	uow        repositories.UnitOfWork
	maxTokens  int64
	now        Clock
}

func NewMetadataRefreshUsecase(
	contracts repositories.SmartContractRepository,
	tokens repositories.TokenRepository,
	frozen repositories.FrozenTokenRepository,
	metadata repositories.MetadataRepository,
	jobs repositories.JobRepository,
	queue Enqueuer,
	fetcher MetadataFetcher,
	normalizer *MetadataNormalizer,
	hosts *HostRateLimiter,
	etags EtagInvalidator,
	uow repositories.UnitOfWork,
	maxTokenCount int64,
	now Clock,
) *MetadataRefreshUsecase {
	return &MetadataRefreshUsecase{
		contracts:  contracts,
		tokens:     tokens,
		frozen:     frozen,
		metadata:   metadata,
		jobs:       jobs,
		queue:      queue,
		fetcher:    fetcher,
		normalizer: normalizer,
		hosts:      hosts,
		etags:      etags,
		uow:        uow,
		maxTokens:  maxTokenCountOrDefault(maxTokenCount),
		now:        clockOrDefault(now),
	}
}

// Process runs a queued job. On success the job is marked done in the same
// transaction as its writes; on error the job is left queued for the caller to fail.
func (u *MetadataRefreshUsecase) Process(ctx context.Context, job *entities.Job) error {
	start := time.Now()
	label := targetLabel(job.Target)
	defer func() {
		metrics.JobDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	}()

	if id, ok := job.Target.ContractID(); ok {
		return u.processContract(ctx, job, id)
	}
	if id, ok := job.Target.TokenID(); ok {
		return u.processToken(ctx, job, id)
	}
	return fmt.Errorf("job %s: %w", job.ID, domainerrors.ErrInvalidJobTarget)
}

func (u *MetadataRefreshUsecase) processContract(ctx context.Context, job *entities.Job, contractID uuid.UUID) error {
	contract, err := u.contracts.GetByID(ctx, contractID)
	if err != nil {
		return fmt.Errorf("load contract: %w", err)
	}

	count := contract.ExpectedTokenCount()
	if count > u.maxTokens {
		return fmt.Errorf("contract %s declares %d tokens, more than %d: %w",
			contract.Principal, count, u.maxTokens, domainerrors.ErrInvalidInput)
	}

	enqueued := 0
	err = u.uow.Do(ctx, func(ctx context.Context) error {
		now := u.now()
		for from := int64(1); from <= count; from += tokenBatchSize {
			to := min(from+tokenBatchSize-1, count)
			n, err := u.importTokenBatch(ctx, contract, from, to, now)
			if err != nil {
				return err
			}
			enqueued += n
		}
		return u.jobs.MarkDone(ctx, job.ID, now)
	})
	if err != nil {
		return err
	}

	metrics.JobsFinished.WithLabelValues("done").Inc()
	logger.Info(ctx, "Contract imported",
		zap.String("principal", contract.Principal),
		zap.Int("tokenJobs", enqueued),
	)
	return nil
}

// importTokenBatch creates the missing tokens numbered from..to and enqueues a
// refresh for each one that is not frozen.
func (u *MetadataRefreshUsecase) importTokenBatch(ctx context.Context, contract *entities.SmartContract, from, to int64, now time.Time) (int, error) {
	if err := u.tokens.InsertMissing(ctx, tokensForContract(contract, from, to, now)); err != nil {
		return 0, err
	}
	numbers := make([]int64, 0, to-from+1)
	for n := from; n <= to; n++ {
		numbers = append(numbers, n)
	}
	tokens, err := u.tokens.ListByNumbers(ctx, contract.ID, numbers)
	if err != nil {
		return 0, err
	}

	enqueued := 0
	for _, t := range tokens {
		frozen, err := u.frozen.IsFrozen(ctx, t.ID)
		if err != nil {
			return 0, err
		}
		if frozen {
			continue
		}
		created, err := u.queue.Enqueue(ctx, entities.TokenTarget(t.ID))
		if err != nil {
			return 0, err
		}
		if created {
			enqueued++
		}
	}
	return enqueued, nil
}

func (u *MetadataRefreshUsecase) processToken(ctx context.Context, job *entities.Job, tokenID uuid.UUID) error {
	token, err := u.tokens.GetByID(ctx, tokenID)
	if err != nil {
		return fmt.Errorf("load token: %w", err)
	}
	uri := token.ResolvedURI()
	if uri == "" {
		return fmt.Errorf("token %s has no uri: %w", token.ID, domainerrors.ErrInvalidInput)
	}

	if host := u.fetcher.ResolveHost(uri); host != "" {
		until, err := u.hosts.BlockedUntil(ctx, host)
		if err != nil {
			return err
		}
		if !until.IsZero() {
			return &HostLimitedError{Host: host, RetryAfter: until}
		}
	}

	// fetch outside any transaction
	raw, err := u.fetcher.Fetch(ctx, uri)
	if err != nil {
		return err
	}
	records, err := u.normalizer.Normalize(ctx, raw)
	if err != nil {
		return err
	}

	now := u.now()
	err = u.uow.Do(ctx, func(ctx context.Context) error {
		for _, r := range records {
			r.CreatedAt = now
			r.UpdatedAt = now
		}
		if err := u.metadata.ReplaceForToken(ctx, token.ID, records); err != nil {
			return err
		}
		if err := u.tokens.Touch(ctx, token.ID, now); err != nil {
			return err
		}
		return u.jobs.MarkDone(ctx, job.ID, now)
	})
	if err != nil {
		return err
	}
	metrics.JobsFinished.WithLabelValues("done").Inc()

	if u.etags != nil {
		if contract, err := u.contracts.GetByID(ctx, token.SmartContractID); err == nil {
			u.etags.Invalidate(ctx, contract.Principal, token.TokenNumber)
		}
	}

	logger.Info(ctx, "Token metadata refreshed",
		zap.String("tokenId", token.ID.String()),
		zap.Int64("tokenNumber", token.TokenNumber),
		zap.Int("records", len(records)),
	)
	return nil
}

// tokensForContract lists the token rows numbered from..to a contract is expected to have.
func tokensForContract(c *entities.SmartContract, from, to int64, now time.Time) []*entities.Token {
	if to < from {
		return nil
	}
	typ := c.SIP.TokenType()
	out := make([]*entities.Token, 0, to-from+1)
	for n := from; n <= to; n++ {
		out = append(out, &entities.Token{
			SmartContractID: c.ID,
			Type:            typ,
			TokenNumber:     n,
			URI:             c.TokenURI,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
	}
	return out
}
