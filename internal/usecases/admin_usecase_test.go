package usecases_test

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"token-metadata.backend/internal/domain/entities"
	domainerrors "token-metadata.backend/internal/domain/errors"
	"token-metadata.backend/internal/usecases"
	"token-metadata.backend/pkg/utils"
)

func newAdmin(env *testEnv) *usecases.AdminUsecase {
	return usecases.NewAdminUsecase(env.contracts, env.tokens, env.jobs, env.tracker, env.queue, env.hosts, env.uow)
}

func TestAdminUsecase_RefreshUnfreezesTokens(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()
	uc := newAdmin(env)
	contract := env.seedContract(t, testPrincipal, entities.SIP009, 2)
	first := env.seedToken(t, contract, 1, testTokenURITmpl)
	env.seedToken(t, contract, 2, testTokenURITmpl)
	_, err := env.frozen.Freeze(ctx, first.ID, env.clock.Now())
	require.NoError(t, err)

	res, err := uc.RefreshTokens(ctx, &usecases.RefreshInput{Principal: testPrincipal, TokenNumbers: []int64{1}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Tokens)
	assert.Equal(t, int64(1), res.Unfrozen)
	assert.Equal(t, 1, res.Enqueued)

	frozen, err := env.frozen.IsFrozen(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, frozen)

	res, err = uc.RefreshTokens(ctx, &usecases.RefreshInput{Principal: testPrincipal})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Tokens)
	assert.Equal(t, 1, res.Enqueued, "token 1 already has an active job")
}

func TestAdminUsecase_RefreshContractWithoutTokens(t *testing.T) {
	env := newTestEnv(t)
	uc := newAdmin(env)
	contract := env.seedContract(t, testPrincipal, entities.SIP009, 5)

	res, err := uc.RefreshTokens(t.Context(), &usecases.RefreshInput{Principal: testPrincipal})
	require.NoError(t, err)
	assert.True(t, res.ContractReimport)
	assert.Equal(t, entities.JobStatusPending, env.activeJob(t, entities.ContractTarget(contract.ID)).Status)

	_, err = uc.RefreshTokens(t.Context(), &usecases.RefreshInput{Principal: testPrincipal, TokenNumbers: []int64{9}})
	assert.ErrorIs(t, err, domainerrors.ErrTokenNotFound)

	_, err = uc.RefreshTokens(t.Context(), &usecases.RefreshInput{Principal: "nope"})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidInput)

	_, err = uc.RefreshTokens(t.Context(), &usecases.RefreshInput{Principal: testFTPrincipal})
	assert.ErrorIs(t, err, domainerrors.ErrTokenNotFound)
}

func TestAdminUsecase_RetryFailed(t *testing.T) {
	jobs := new(MockJobRepository)
	queue := new(MockEnqueuer)
	uc := usecases.NewAdminUsecase(nil, nil, jobs, nil, queue, nil, new(MockUnitOfWork))

	a := entities.TokenTarget(uuid.New())
	b := entities.ContractTarget(uuid.New())
	jobs.On("ListFailedTargets", mock.Anything, 500).Return([]entities.JobTarget{a, b}, nil)
	queue.On("Enqueue", mock.Anything, a).Return(true, nil)
	queue.On("Enqueue", mock.Anything, b).Return(false, nil)

	n, err := uc.RetryFailed(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	queue.AssertExpectations(t)
}

func TestAdminUsecase_ListJobs(t *testing.T) {
	jobs := new(MockJobRepository)
	uc := usecases.NewAdminUsecase(nil, nil, jobs, nil, nil, nil, new(MockUnitOfWork))
	page := utils.GetPaginationParams(1, 20)
	failed := entities.JobStatusFailed

	jobs.On("List", mock.Anything, entities.JobFilter{Status: &failed}, page).
		Return([]*entities.Job{{ID: uuid.New(), Status: failed}}, int64(1), nil)

	list, total, err := uc.ListJobs(t.Context(), "failed", page)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, int64(1), total)

	_, _, err = uc.ListJobs(t.Context(), "exploded", page)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidInput)

	jobs.On("List", mock.Anything, entities.JobFilter{}, page).Return(nil, int64(0), errors.New("db down"))
	_, _, err = uc.ListJobs(t.Context(), "", page)
	assert.Error(t, err)
}
