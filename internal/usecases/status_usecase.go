package usecases

import (
	"context"

	"token-metadata.backend/internal/domain/entities"
	"token-metadata.backend/internal/domain/repositories"
)

// StatusUsecase reports indexing progress for the API root.
type StatusUsecase struct {
	chainTip  repositories.ChainTipRepository
	contracts repositories.SmartContractRepository
	tokens    repositories.TokenRepository
	jobs      repositories.JobRepository
}

func NewStatusUsecase(
	chainTip repositories.ChainTipRepository,
	contracts repositories.SmartContractRepository,
	tokens repositories.TokenRepository,
	jobs repositories.JobRepository,
) *StatusUsecase {
	return &StatusUsecase{chainTip: chainTip, contracts: contracts, tokens: tokens, jobs: jobs}
}

func (u *StatusUsecase) GetStatus(ctx context.Context) (*entities.ServiceStatus, error) {
	tip, err := u.chainTip.Get(ctx)
	if err != nil {
		return nil, err
	}
	byType, err := u.tokens.CountByType(ctx)
	if err != nil {
		return nil, err
	}
	bySIP, err := u.contracts.CountBySIP(ctx)
	if err != nil {
		return nil, err
	}
	byStatus, err := u.jobs.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	status := &entities.ServiceStatus{
		ChainTip:  tip,
		Tokens:    make(map[string]int64, len(byType)),
		Contracts: make(map[string]int64, len(bySIP)),
		Jobs:      make(map[string]int64, len(byStatus)),
	}
	for k, v := range byType {
		status.Tokens[string(k)] = v
	}
	for k, v := range bySIP {
		status.Contracts[string(k)] = v
	}
	for _, s := range []entities.JobStatus{
		entities.JobStatusPending, entities.JobStatusQueued, entities.JobStatusDone, entities.JobStatusFailed,
	} {
		status.Jobs[string(s)] = byStatus[s]
	}
	return status, nil
}
