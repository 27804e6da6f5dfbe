package usecases_test

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"token-metadata.backend/internal/domain/entities"
	domainRepos "token-metadata.backend/internal/domain/repositories"
	"token-metadata.backend/internal/infrastructure/fetcher"
	"token-metadata.backend/internal/infrastructure/models"
	"token-metadata.backend/internal/infrastructure/repositories"
	"token-metadata.backend/internal/usecases"
)

const (
	testPrincipal    = "SP2X0TZ59D5SZ8ACQ6YMCHHNR2ZN51Z32E2CJ173.punks"
	testFTPrincipal  = "SP3K8BC0PPEVCV7NZ6QSRWPQ2JE9E5B6N3PA0KBR9.alex-token"
	testHost         = "meta.example.com"
	testMaxTokens    = 1200
	testTokenURITmpl = "https://meta.example.com/{id}.json"
)

type testClock struct {
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time          { return c.now }
func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// testEnv wires usecases over real repositories on an in-memory sqlite database.
type testEnv struct {
	db    *gorm.DB
	clock *testClock

	contracts     *repositories.SmartContractRepository
	tokens        *repositories.TokenRepository
	frozen        *repositories.FrozenTokenRepository
	metadata      *repositories.MetadataRepository
	jobs          *repositories.JobRepository
	notifications *repositories.NotificationRepository
	hostsRepo     *repositories.RateLimitedHostRepository
	chainTipRepo  *repositories.ChainTipRepository
	uow           domainRepos.UnitOfWork

	hosts    *usecases.HostRateLimiter
	queue    *usecases.JobQueue
	tracker  *usecases.NotificationTracker
	chainTip *usecases.ChainTipTracker
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:uc_%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, models.Migrate(db))
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)
	clock := newTestClock()
	env := &testEnv{
		db:            db,
		clock:         clock,
		contracts:     repositories.NewSmartContractRepository(db),
		tokens:        repositories.NewTokenRepository(db),
		frozen:        repositories.NewFrozenTokenRepository(db),
		metadata:      repositories.NewMetadataRepository(db),
		jobs:          repositories.NewJobRepository(db),
		notifications: repositories.NewNotificationRepository(db),
		hostsRepo:     repositories.NewRateLimitedHostRepository(db),
		chainTipRepo:  repositories.NewChainTipRepository(db),
		uow:           repositories.NewUnitOfWork(db),
	}
	env.hosts = usecases.NewHostRateLimiter(env.hostsRepo, time.Minute, clock.Now)
	env.queue = usecases.NewJobQueue(env.jobs, env.hosts, fetcher.Gateways{
		IPFS:    "https://ipfs.example.com",
		Arweave: "https://arweave.example.com",
	}, env.uow, usecases.JobQueueConfig{
		MaxRetries:     3,
		RetryBaseDelay: 10 * time.Second,
		RetryMaxDelay:  time.Minute,
		QueuedTimeout:  5 * time.Minute,
	}, clock.Now)
	env.tracker = usecases.NewNotificationTracker(env.tokens, env.frozen, env.notifications, env.chainTipRepo,
		env.queue, env.uow, usecases.RefreshConfig{
			DynamicDefaultTTL: time.Hour,
			SweepInterval:     time.Minute,
		}, clock.Now)
	env.chainTip = usecases.NewChainTipTracker(env.chainTipRepo, clock.Now)
	require.NoError(t, env.chainTip.Init(t.Context()))
	return env
}

func (e *testEnv) seedContract(t *testing.T, principal string, sip entities.SIP, tokenCount int64) *entities.SmartContract {
	t.Helper()
	c := &entities.SmartContract{
		Principal:   principal,
		SIP:         sip,
		TxID:        "0x" + strings.Repeat("cd", 32),
		BlockHeight: 10,
		TokenCount:  tokenCount,
		TokenURI:    null.StringFrom(testTokenURITmpl),
		CreatedAt:   e.clock.Now(),
	}
	created, err := e.contracts.Create(t.Context(), c)
	require.NoError(t, err)
	require.True(t, created)
	return c
}

func (e *testEnv) seedToken(t *testing.T, c *entities.SmartContract, number int64, uri string) *entities.Token {
	t.Helper()
	tok := &entities.Token{
		ID:              uuid.New(),
		SmartContractID: c.ID,
		Type:            c.SIP.TokenType(),
		TokenNumber:     number,
		CreatedAt:       e.clock.Now(),
		UpdatedAt:       e.clock.Now(),
	}
	if uri != "" {
		tok.URI = null.StringFrom(uri)
	}
	require.NoError(t, e.tokens.InsertMissing(t.Context(), []*entities.Token{tok}))
	got, err := e.tokens.GetByNumber(t.Context(), c.ID, number)
	require.NoError(t, err)
	return got
}

func (e *testEnv) activeJob(t *testing.T, target entities.JobTarget) *entities.Job {
	t.Helper()
	job, err := e.jobs.GetActiveByTarget(t.Context(), target)
	require.NoError(t, err)
	return job
}

func (e *testEnv) countJobs(t *testing.T, status entities.JobStatus) int64 {
	t.Helper()
	counts, err := e.jobs.CountByStatus(t.Context())
	require.NoError(t, err)
	return counts[status]
}
