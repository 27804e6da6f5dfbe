package usecases_test

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/volatiletech/null/v8"
	"token-metadata.backend/internal/domain/entities"
	"token-metadata.backend/pkg/utils"
)

// Mock UnitOfWork
type MockUnitOfWork struct {
	mock.Mock
}

func (m *MockUnitOfWork) Do(ctx context.Context, f func(context.Context) error) error {
	m.Called(ctx, f)
	return f(ctx)
}

// Mock MetadataFetcher
type MockMetadataFetcher struct {
	mock.Mock
}

func (m *MockMetadataFetcher) Fetch(ctx context.Context, uri string) ([]byte, error) {
	args := m.Called(ctx, uri)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockMetadataFetcher) ResolveHost(uri string) string {
	args := m.Called(uri)
	return args.String(0)
}

// Mock ImageCacher
type MockImageCacher struct {
	mock.Mock
}

func (m *MockImageCacher) Cache(ctx context.Context, image string) (null.String, null.String, error) {
	args := m.Called(ctx, image)
	return args.Get(0).(null.String), args.Get(1).(null.String), args.Error(2)
}

// Mock EtagStore
type MockEtagStore struct {
	mock.Mock
}

func (m *MockEtagStore) GetEtag(ctx context.Context, key string) (string, bool, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockEtagStore) SetEtag(ctx context.Context, key, etag string, ttl time.Duration) error {
	args := m.Called(ctx, key, etag, ttl)
	return args.Error(0)
}

func (m *MockEtagStore) DeleteEtag(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// Mock Enqueuer
type MockEnqueuer struct {
	mock.Mock
}

func (m *MockEnqueuer) Enqueue(ctx context.Context, target entities.JobTarget) (bool, error) {
	args := m.Called(ctx, target)
	return args.Bool(0), args.Error(1)
}

// Mock ChainTipRepository
type MockChainTipRepository struct {
	mock.Mock
}

func (m *MockChainTipRepository) Init(ctx context.Context, at time.Time) error {
	args := m.Called(ctx, at)
	return args.Error(0)
}

func (m *MockChainTipRepository) Get(ctx context.Context) (*entities.ChainTip, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.ChainTip), args.Error(1)
}

func (m *MockChainTipRepository) Advance(ctx context.Context, height int64, at time.Time) (bool, error) {
	args := m.Called(ctx, height, at)
	return args.Bool(0), args.Error(1)
}

func (m *MockChainTipRepository) SwapDynamicRefresh(ctx context.Context, expected, next time.Time) (bool, error) {
	args := m.Called(ctx, expected, next)
	return args.Bool(0), args.Error(1)
}

// Mock SmartContractRepository
type MockSmartContractRepository struct {
	mock.Mock
}

func (m *MockSmartContractRepository) Create(ctx context.Context, contract *entities.SmartContract) (bool, error) {
	args := m.Called(ctx, contract)
	return args.Bool(0), args.Error(1)
}

func (m *MockSmartContractRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.SmartContract, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.SmartContract), args.Error(1)
}

func (m *MockSmartContractRepository) GetByPrincipal(ctx context.Context, principal string) (*entities.SmartContract, error) {
	args := m.Called(ctx, principal)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.SmartContract), args.Error(1)
}

func (m *MockSmartContractRepository) RaiseTokenCount(ctx context.Context, id uuid.UUID, count int64) error {
	args := m.Called(ctx, id, count)
	return args.Error(0)
}

func (m *MockSmartContractRepository) CountBySIP(ctx context.Context) (map[entities.SIP]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[entities.SIP]int64), args.Error(1)
}

// Mock TokenRepository
type MockTokenRepository struct {
	mock.Mock
}

func (m *MockTokenRepository) InsertMissing(ctx context.Context, tokens []*entities.Token) error {
	args := m.Called(ctx, tokens)
	return args.Error(0)
}

func (m *MockTokenRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Token, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Token), args.Error(1)
}

func (m *MockTokenRepository) GetByNumber(ctx context.Context, contractID uuid.UUID, tokenNumber int64) (*entities.Token, error) {
	args := m.Called(ctx, contractID, tokenNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Token), args.Error(1)
}

func (m *MockTokenRepository) ListByContract(ctx context.Context, contractID uuid.UUID) ([]*entities.Token, error) {
	args := m.Called(ctx, contractID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Token), args.Error(1)
}

func (m *MockTokenRepository) ListByNumbers(ctx context.Context, contractID uuid.UUID, numbers []int64) ([]*entities.Token, error) {
	args := m.Called(ctx, contractID, numbers)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Token), args.Error(1)
}

func (m *MockTokenRepository) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockTokenRepository) SetURI(ctx context.Context, id uuid.UUID, uri string) error {
	args := m.Called(ctx, id, uri)
	return args.Error(0)
}

func (m *MockTokenRepository) SetUpdateNotification(ctx context.Context, tokenID, notificationID uuid.UUID) error {
	args := m.Called(ctx, tokenID, notificationID)
	return args.Error(0)
}

func (m *MockTokenRepository) ListDynamic(ctx context.Context) ([]*entities.DynamicToken, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.DynamicToken), args.Error(1)
}

func (m *MockTokenRepository) CountByType(ctx context.Context) (map[entities.TokenType]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[entities.TokenType]int64), args.Error(1)
}

// Mock JobRepository
type MockJobRepository struct {
	mock.Mock
}

func (m *MockJobRepository) Insert(ctx context.Context, job *entities.Job) (bool, error) {
	args := m.Called(ctx, job)
	return args.Bool(0), args.Error(1)
}

func (m *MockJobRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Job, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Job), args.Error(1)
}

func (m *MockJobRepository) GetActiveByTarget(ctx context.Context, target entities.JobTarget) (*entities.Job, error) {
	args := m.Called(ctx, target)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Job), args.Error(1)
}

func (m *MockJobRepository) FindCandidates(ctx context.Context, now, staleBefore time.Time, after entities.CandidateCursor, limit int) ([]*entities.JobCandidate, error) {
	args := m.Called(ctx, now, staleBefore, after, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.JobCandidate), args.Error(1)
}

func (m *MockJobRepository) Claim(ctx context.Context, job *entities.Job, at time.Time) (bool, error) {
	args := m.Called(ctx, job, at)
	return args.Bool(0), args.Error(1)
}

func (m *MockJobRepository) MarkDone(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockJobRepository) Reschedule(ctx context.Context, id uuid.UUID, retryCount int, nextAt time.Time, reason string) error {
	args := m.Called(ctx, id, retryCount, nextAt, reason)
	return args.Error(0)
}

func (m *MockJobRepository) MarkFailed(ctx context.Context, id uuid.UUID, retryCount int, at time.Time, reason string) error {
	args := m.Called(ctx, id, retryCount, at, reason)
	return args.Error(0)
}

func (m *MockJobRepository) List(ctx context.Context, filter entities.JobFilter, pagination utils.PaginationParams) ([]*entities.Job, int64, error) {
	args := m.Called(ctx, filter, pagination)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*entities.Job), args.Get(1).(int64), args.Error(2)
}

func (m *MockJobRepository) ListFailedTargets(ctx context.Context, limit int) ([]entities.JobTarget, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.JobTarget), args.Error(1)
}

func (m *MockJobRepository) CountByStatus(ctx context.Context) (map[entities.JobStatus]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[entities.JobStatus]int64), args.Error(1)
}
