package usecases

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"
	"go.uber.org/zap"
	"token-metadata.backend/internal/domain/entities"
	domainerrors "token-metadata.backend/internal/domain/errors"
	"token-metadata.backend/internal/domain/repositories"
	"token-metadata.backend/pkg/logger"
)

// ChainIngestionUsecase applies blocks pushed by the chain indexer: contract
// deployments, token mints and metadata update notifications.
type ChainIngestionUsecase struct {
	contracts repositories.SmartContractRepository
	tokens    repositories.TokenRepository
	frozen    repositories.FrozenTokenRepository
	queue     Enqueuer
	tracker   *NotificationTracker
	chainTip  *ChainTipTracker
	uow       repositories.UnitOfWork
	maxTokens int64
	now       Clock
}

func NewChainIngestionUsecase(
	contracts repositories.SmartContractRepository,
	tokens repositories.TokenRepository,
	frozen repositories.FrozenTokenRepository,
	queue Enqueuer,
	tracker *NotificationTracker,
	chainTip *ChainTipTracker,
	uow repositories.UnitOfWork,
	maxTokenCount int64,
	now Clock,
) *ChainIngestionUsecase {
	return &ChainIngestionUsecase{
		contracts: contracts,
		tokens:    tokens,
		frozen:    frozen,
		queue:     queue,
		tracker:   tracker,
		chainTip:  chainTip,
		uow:       uow,
		maxTokens: maxTokenCountOrDefault(maxTokenCount),
		now:       clockOrDefault(now),
	}
}

// ProcessBlock applies a block atomically. Blocks at or behind the chain tip are ignored.
func (u *ChainIngestionUsecase) ProcessBlock(ctx context.Context, in *entities.ChainBlockInput) (*entities.ChainBlockResult, error) {
	if in == nil || in.BlockHeight <= 0 || in.IndexBlockHash == "" {
		return nil, domainerrors.BadRequest("block height and index block hash are required")
	}
	if err := validateBlock(in, u.maxTokens); err != nil {
		return nil, err
	}

	result := &entities.ChainBlockResult{BlockHeight: in.BlockHeight}
	err := u.uow.Do(ctx, func(ctx context.Context) error {
		tip, err := u.chainTip.Current(ctx)
		if err != nil {
			return err
		}
		if in.BlockHeight <= tip.BlockHeight {
			logger.Warn(ctx, "Ignoring block at or behind chain tip",
				zap.Int64("blockHeight", in.BlockHeight),
				zap.Int64("chainTip", tip.BlockHeight),
			)
			return nil
		}

		for i := range in.Contracts {
			created, err := u.applyContract(ctx, in.BlockHeight, &in.Contracts[i])
			if err != nil {
				return err
			}
			if created {
				result.Contracts++
				result.JobsEnqueued++
			}
		}

		for i := range in.Mints {
			enqueued, err := u.applyMint(ctx, &in.Mints[i])
			if err != nil {
				return err
			}
			result.Mints++
			if enqueued {
				result.JobsEnqueued++
			}
		}

		notifications, err := u.expandNotifications(ctx, in)
		if err != nil {
			return err
		}
		enqueued, err := u.tracker.Apply(ctx, notifications)
		if err != nil {
			return err
		}
		result.Notifications = len(notifications)
		result.JobsEnqueued += enqueued

		if _, err := u.chainTip.Advance(ctx, in.BlockHeight); err != nil {
			return err
		}
		result.Applied = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Applied {
		logger.Info(ctx, "Block ingested",
			zap.Int64("blockHeight", in.BlockHeight),
			zap.Int("contracts", result.Contracts),
			zap.Int("mints", result.Mints),
			zap.Int("notifications", result.Notifications),
			zap.Int("jobsEnqueued", result.JobsEnqueued),
		)
	}
	return result, nil
}

func validateBlock(in *entities.ChainBlockInput, maxTokens int64) error {
	for _, c := range in.Contracts {
		if !entities.IsContractPrincipal(c.Principal) {
			return domainerrors.BadRequest(fmt.Sprintf("invalid contract principal %q", c.Principal))
		}
		if !c.SIP.Valid() {
			return domainerrors.BadRequest(fmt.Sprintf("unsupported sip %q", c.SIP))
		}
		if c.TokenCount < 0 {
			return domainerrors.BadRequest("token count must not be negative")
		}
		if c.TokenCount > maxTokens {
			return domainerrors.BadRequest(fmt.Sprintf("token count %d exceeds the limit of %d", c.TokenCount, maxTokens))
		}
	}
	for _, m := range in.Mints {
		if m.TokenNumber < 1 {
			return domainerrors.BadRequest("token number must be positive")
		}
		if m.TokenNumber > maxTokens {
			return domainerrors.BadRequest(fmt.Sprintf("token number %d exceeds the limit of %d", m.TokenNumber, maxTokens))
		}
	}
	for _, n := range in.Notifications {
		if n.UpdateMode != "" && !n.UpdateMode.Valid() {
			return domainerrors.BadRequest(fmt.Sprintf("unsupported update mode %q", n.UpdateMode))
		}
	}
	return nil
}

// applyContract indexes a deployment and schedules its import job.
func (u *ChainIngestionUsecase) applyContract(ctx context.Context, height int64, in *entities.ContractDeployInput) (bool, error) {
	now := u.now()
	contract := &entities.SmartContract{
		Principal:   in.Principal,
		SIP:         in.SIP,
		ABI:         in.ABI,
		TxID:        in.TxID,
		BlockHeight: height,
		TokenCount:  in.TokenCount,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.TokenURI != "" {
		contract.TokenURI = null.StringFrom(in.TokenURI)
	}
	created, err := u.contracts.Create(ctx, contract)
	if err != nil {
		return false, err
	}
	if !created {
		logger.Debug(ctx, "Contract already indexed", zap.String("principal", in.Principal))
		return false, nil
	}

	if in.SIP.TokenType() == entities.TokenTypeFT {
		ft := &entities.Token{
			SmartContractID: contract.ID,
			Type:            entities.TokenTypeFT,
			TokenNumber:     1,
			URI:             contract.TokenURI,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if in.Name != "" {
			ft.Name = null.StringFrom(in.Name)
		}
		if in.Symbol != "" {
			ft.Symbol = null.StringFrom(in.Symbol)
		}
		if in.Decimals != nil {
			ft.Decimals = null.IntFrom(*in.Decimals)
		}
		if in.TotalSupply != nil {
			ft.TotalSupply = decimal.NullDecimal{Decimal: *in.TotalSupply, Valid: true}
		}
		if err := u.tokens.InsertMissing(ctx, []*entities.Token{ft}); err != nil {
			return false, err
		}
	}

	if _, err := u.queue.Enqueue(ctx, entities.ContractTarget(contract.ID)); err != nil {
		return false, err
	}
	return true, nil
}

// applyMint creates a token for an already indexed contract and schedules its refresh.
func (u *ChainIngestionUsecase) applyMint(ctx context.Context, in *entities.TokenMintInput) (bool, error) {
	contract, err := u.contracts.GetByPrincipal(ctx, in.Principal)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			logger.Warn(ctx, "Mint for unknown contract", zap.String("principal", in.Principal))
			return false, nil
		}
		return false, err
	}

	now := u.now()
	token := &entities.Token{
		SmartContractID: contract.ID,
		Type:            contract.SIP.TokenType(),
		TokenNumber:     in.TokenNumber,
		URI:             contract.TokenURI,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if in.TokenURI != "" {
		token.URI = null.StringFrom(in.TokenURI)
	}
	if err := u.tokens.InsertMissing(ctx, []*entities.Token{token}); err != nil {
		return false, err
	}
	if err := u.contracts.RaiseTokenCount(ctx, contract.ID, in.TokenNumber); err != nil {
		return false, err
	}

	stored, err := u.tokens.GetByNumber(ctx, contract.ID, in.TokenNumber)
	if err != nil {
		return false, err
	}
	frozen, err := u.frozen.IsFrozen(ctx, stored.ID)
	if err != nil || frozen {
		return false, err
	}
	return u.queue.Enqueue(ctx, entities.TokenTarget(stored.ID))
}

// expandNotifications turns contract-wide events into one notification per token.
func (u *ChainIngestionUsecase) expandNotifications(ctx context.Context, in *entities.ChainBlockInput) ([]*entities.Notification, error) {
	var out []*entities.Notification
	for _, n := range in.Notifications {
		contract, err := u.contracts.GetByPrincipal(ctx, n.Principal)
		if err != nil {
			if errors.Is(err, domainerrors.ErrNotFound) {
				logger.Warn(ctx, "Notification for unknown contract", zap.String("principal", n.Principal))
				continue
			}
			return nil, err
		}

		var tokens []*entities.Token
		if len(n.TokenNumbers) == 0 {
			tokens, err = u.tokens.ListByContract(ctx, contract.ID)
		} else {
			tokens, err = u.tokens.ListByNumbers(ctx, contract.ID, n.TokenNumbers)
		}
		if err != nil {
			return nil, err
		}

		mode := n.UpdateMode
		if mode == "" {
			mode = entities.UpdateModeStandard
		}
		for _, t := range tokens {
			item := &entities.Notification{
				SmartContractID: contract.ID,
				TokenID:         t.ID,
				BlockHeight:     in.BlockHeight,
				IndexBlockHash:  in.IndexBlockHash,
				TxID:            n.TxID,
				TxIndex:         n.TxIndex,
				EventIndex:      n.EventIndex,
				UpdateMode:      mode,
				CreatedAt:       u.now(),
			}
			if n.TTL != nil {
				item.TTL = null.Int64From(entities.ClampTTL(*n.TTL))
			}
			out = append(out, item)
		}
	}
	return out, nil
}
