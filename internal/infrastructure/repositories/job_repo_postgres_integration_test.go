//go:build integration

package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"token-metadata.backend/internal/domain/entities"
	"token-metadata.backend/internal/infrastructure/models"
)

func newPostgresTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres container skipped in short mode")
	}
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("token_metadata_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	t.Cleanup(func() {
		require.NoError(t, container.Terminate(context.Background()))
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, models.Migrate(db))
	return db
}

func TestJobRepository_Postgres_ConcurrentClaimersSkipLockedRows(t *testing.T) {
	db := newPostgresTestDB(t)
	repo := NewJobRepository(db)
	uow := NewUnitOfWork(db)
	ctx := t.Context()

	contract := seedContract(t, db, testPrincipal, entities.SIP009)
	now := testNow()
	var ids []uuid.UUID
	for n := int64(1); n <= 2; n++ {
		tok := seedToken(t, db, contract, n, "")
		job := &entities.Job{
			ID:        uuid.New(),
			Target:    entities.TokenTarget(tok.ID),
			Status:    entities.JobStatusPending,
			CreatedAt: now.Add(time.Duration(n) * time.Millisecond),
			UpdatedAt: now,
		}
		inserted, err := repo.Insert(ctx, job)
		require.NoError(t, err)
		require.True(t, inserted)
		ids = append(ids, job.ID)
	}

	locked := make(chan uuid.UUID)
	release := make(chan struct{})
	firstDone := make(chan error, 1)
	go func() {
		firstDone <- uow.Do(ctx, func(ctx context.Context) error {
			got, err := repo.FindCandidates(ctx, now.Add(time.Second), now.Add(-time.Hour), entities.CandidateCursor{}, 1)
			if err != nil {
				close(locked)
				return err
			}
			if len(got) == 1 {
				locked <- got[0].Job.ID
			} else {
				close(locked)
			}
			<-release
			return nil
		})
	}()

	firstID, ok := <-locked
	require.True(t, ok, "first claimer found nothing")
	assert.Equal(t, ids[0], firstID, "oldest pending job is offered first")

	err := uow.Do(ctx, func(ctx context.Context) error {
		got, err := repo.FindCandidates(ctx, now.Add(time.Second), now.Add(-time.Hour), entities.CandidateCursor{}, 2)
		if err != nil {
			return err
		}
		require.Len(t, got, 1, "locked row must be skipped")
		assert.Equal(t, ids[1], got[0].Job.ID)
		return nil
	})
	require.NoError(t, err)

	close(release)
	require.NoError(t, <-firstDone)
}

func TestMigrate_Postgres_ActiveJobUniqueness(t *testing.T) {
	db := newPostgresTestDB(t)
	repo := NewJobRepository(db)
	ctx := t.Context()

	contract := seedContract(t, db, testPrincipal, entities.SIP009)
	tok := seedToken(t, db, contract, 1, "")
	now := testNow()

	first := &entities.Job{ID: uuid.New(), Target: entities.TokenTarget(tok.ID), Status: entities.JobStatusPending, CreatedAt: now, UpdatedAt: now}
	inserted, err := repo.Insert(ctx, first)
	require.NoError(t, err)
	require.True(t, inserted)

	dup := &entities.Job{ID: uuid.New(), Target: entities.TokenTarget(tok.ID), Status: entities.JobStatusPending, CreatedAt: now, UpdatedAt: now}
	inserted, err = repo.Insert(ctx, dup)
	require.NoError(t, err)
	assert.False(t, inserted)

	require.NoError(t, repo.MarkDone(ctx, first.ID, now))
	inserted, err = repo.Insert(ctx, dup)
	require.NoError(t, err)
	assert.True(t, inserted, "terminal jobs do not block a new one")
}
