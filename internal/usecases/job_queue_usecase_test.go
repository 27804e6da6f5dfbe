package usecases_test

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"token-metadata.backend/internal/domain/entities"
	domainerrors "token-metadata.backend/internal/domain/errors"
)

func TestJobQueue_EnqueueIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()
	contract := env.seedContract(t, testPrincipal, entities.SIP009, 1)
	tok := env.seedToken(t, contract, 1, testTokenURITmpl)

	created, err := env.queue.Enqueue(ctx, entities.TokenTarget(tok.ID))
	require.NoError(t, err)
	assert.True(t, created)

	created, err = env.queue.Enqueue(ctx, entities.TokenTarget(tok.ID))
	require.NoError(t, err)
	assert.False(t, created)

	// contract and token keys are independent
	created, err = env.queue.Enqueue(ctx, entities.ContractTarget(contract.ID))
	require.NoError(t, err)
	assert.True(t, created)

	assert.Equal(t, int64(2), env.countJobs(t, entities.JobStatusPending))
}

func TestJobQueue_EnqueueRejectsZeroTarget(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.queue.Enqueue(t.Context(), entities.JobTarget{})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidJobTarget)

	_, err = env.queue.Enqueue(t.Context(), entities.TokenTarget(uuid.Nil))
	assert.ErrorIs(t, err, domainerrors.ErrInvalidJobTarget)
}

func TestJobQueue_ClaimNextInCreationOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()
	contract := env.seedContract(t, testPrincipal, entities.SIP009, 3)

	var ids []uuid.UUID
	for n := int64(1); n <= 3; n++ {
		tok := env.seedToken(t, contract, n, testTokenURITmpl)
		_, err := env.queue.Enqueue(ctx, entities.TokenTarget(tok.ID))
		require.NoError(t, err)
		ids = append(ids, env.activeJob(t, entities.TokenTarget(tok.ID)).ID)
		env.clock.Advance(time.Second)
	}

	claimed, err := env.queue.ClaimNext(ctx, 2)
	require.NoError(t, err)
	require.Len(t, claimed, 2)
	assert.Equal(t, ids[0], claimed[0].ID)
	assert.Equal(t, ids[1], claimed[1].ID)
	for _, j := range claimed {
		assert.Equal(t, entities.JobStatusQueued, j.Status)
	}

	claimed, err = env.queue.ClaimNext(ctx, 5)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, ids[2], claimed[0].ID)

	claimed, err = env.queue.ClaimNext(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, claimed)
}

func TestJobQueue_ClaimNextSkipsRateLimitedHosts(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()
	contract := env.seedContract(t, testPrincipal, entities.SIP009, 2)
	limited := env.seedToken(t, contract, 1, "https://"+testHost+"/1.json")
	open := env.seedToken(t, contract, 2, "ipfs://bafy/2.json")

	_, err := env.queue.Enqueue(ctx, entities.TokenTarget(limited.ID))
	require.NoError(t, err)
	env.clock.Advance(time.Second)
	_, err = env.queue.Enqueue(ctx, entities.TokenTarget(open.ID))
	require.NoError(t, err)

	require.NoError(t, env.hosts.Penalize(ctx, testHost, 30*time.Second))

	claimed, err := env.queue.ClaimNext(ctx, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	tokenID, ok := claimed[0].Target.TokenID()
	require.True(t, ok)
	assert.Equal(t, open.ID, tokenID)

	skipped := env.activeJob(t, entities.TokenTarget(limited.ID))
	assert.Equal(t, entities.JobStatusPending, skipped.Status)
	assert.Equal(t, 0, skipped.RetryCount)

	env.clock.Advance(31 * time.Second)
	claimed, err = env.queue.ClaimNext(ctx, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, skipped.ID, claimed[0].ID)
}

func TestJobQueue_ClaimNextPagesPastLimitedHost(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()
	contract := env.seedContract(t, testPrincipal, entities.SIP009, 11)

	for n := int64(1); n <= 10; n++ {
		tok := env.seedToken(t, contract, n, "https://"+testHost+"/{id}.json")
		_, err := env.queue.Enqueue(ctx, entities.TokenTarget(tok.ID))
		require.NoError(t, err)
		env.clock.Advance(time.Second)
	}
	open := env.seedToken(t, contract, 11, "https://other.example.org/11.json")
	_, err := env.queue.Enqueue(ctx, entities.TokenTarget(open.ID))
	require.NoError(t, err)

	require.NoError(t, env.hosts.Penalize(ctx, testHost, time.Hour))

	claimed, err := env.queue.ClaimNext(ctx, 1)
	require.NoError(t, err)
	require.Len(t, claimed, 1, "a job on an open host must be reached behind a limited backlog")
	tokenID, ok := claimed[0].Target.TokenID()
	require.True(t, ok)
	assert.Equal(t, open.ID, tokenID)
	assert.Equal(t, int64(10), env.countJobs(t, entities.JobStatusPending))

	claimed, err = env.queue.ClaimNext(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, claimed)
}

func TestJobQueue_FailBacksOffThenFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()
	contract := env.seedContract(t, testPrincipal, entities.SIP009, 1)
	tok := env.seedToken(t, contract, 1, testTokenURITmpl)
	_, err := env.queue.Enqueue(ctx, entities.TokenTarget(tok.ID))
	require.NoError(t, err)

	claimed, err := env.queue.ClaimNext(ctx, 1)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	require.NoError(t, env.queue.Fail(ctx, claimed[0], false, "timeout"))

	job, err := env.queue.Get(ctx, claimed[0].ID)
	require.NoError(t, err)
	assert.Equal(t, entities.JobStatusPending, job.Status)
	assert.Equal(t, 1, job.RetryCount)
	assert.Equal(t, "timeout", job.InvalidReason.String)
	assert.True(t, job.UpdatedAt.Equal(env.clock.Now().Add(10*time.Second)))

	// still backing off
	claimed, err = env.queue.ClaimNext(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, claimed)

	env.clock.Advance(10 * time.Second)
	claimed, err = env.queue.ClaimNext(ctx, 1)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	require.NoError(t, env.queue.Fail(ctx, claimed[0], false, "timeout"))

	env.clock.Advance(20 * time.Second)
	claimed, err = env.queue.ClaimNext(ctx, 1)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	require.NoError(t, env.queue.Fail(ctx, claimed[0], false, "timeout"))

	job, err = env.queue.Get(ctx, claimed[0].ID)
	require.NoError(t, err)
	assert.Equal(t, entities.JobStatusFailed, job.Status)
	assert.Equal(t, 3, job.RetryCount)

	env.clock.Advance(time.Hour)
	claimed, err = env.queue.ClaimNext(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, claimed)
}

func TestJobQueue_PermanentFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()
	contract := env.seedContract(t, testPrincipal, entities.SIP009, 1)
	tok := env.seedToken(t, contract, 1, "ftp://nope")
	_, err := env.queue.Enqueue(ctx, entities.TokenTarget(tok.ID))
	require.NoError(t, err)

	claimed, err := env.queue.ClaimNext(ctx, 1)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	require.NoError(t, env.queue.Fail(ctx, claimed[0], true, "unsupported scheme"))

	job, err := env.queue.Get(ctx, claimed[0].ID)
	require.NoError(t, err)
	assert.Equal(t, entities.JobStatusFailed, job.Status)
	assert.Equal(t, 1, job.RetryCount)

	// terminal rows do not block a new job for the same token
	created, err := env.queue.Enqueue(ctx, entities.TokenTarget(tok.ID))
	require.NoError(t, err)
	assert.True(t, created)
}

func TestJobQueue_CompleteAndDefer(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()
	contract := env.seedContract(t, testPrincipal, entities.SIP009, 2)
	first := env.seedToken(t, contract, 1, testTokenURITmpl)
	second := env.seedToken(t, contract, 2, testTokenURITmpl)
	_, err := env.queue.Enqueue(ctx, entities.TokenTarget(first.ID))
	require.NoError(t, err)
	_, err = env.queue.Enqueue(ctx, entities.TokenTarget(second.ID))
	require.NoError(t, err)

	claimed, err := env.queue.ClaimNext(ctx, 2)
	require.NoError(t, err)
	require.Len(t, claimed, 2)

	require.NoError(t, env.queue.Complete(ctx, claimed[0].ID))
	assert.ErrorIs(t, env.queue.Complete(ctx, claimed[0].ID), domainerrors.ErrJobNotQueued)

	require.NoError(t, env.queue.Defer(ctx, claimed[1], env.clock.Now(), "host rate limited"))
	deferred, err := env.queue.Get(ctx, claimed[1].ID)
	require.NoError(t, err)
	assert.Equal(t, entities.JobStatusPending, deferred.Status)
	assert.Equal(t, 0, deferred.RetryCount)

	assert.Equal(t, int64(1), env.countJobs(t, entities.JobStatusDone))
}

func TestJobQueue_ReclaimsStaleQueuedJobs(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()
	contract := env.seedContract(t, testPrincipal, entities.SIP009, 1)
	tok := env.seedToken(t, contract, 1, testTokenURITmpl)
	_, err := env.queue.Enqueue(ctx, entities.TokenTarget(tok.ID))
	require.NoError(t, err)

	claimed, err := env.queue.ClaimNext(ctx, 1)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	env.clock.Advance(time.Minute)
	again, err := env.queue.ClaimNext(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, again)

	env.clock.Advance(5 * time.Minute)
	again, err = env.queue.ClaimNext(ctx, 1)
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, claimed[0].ID, again[0].ID)
}

func TestJobQueue_ConcurrentClaimsAreDisjoint(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()
	contract := env.seedContract(t, testPrincipal, entities.SIP009, 8)
	for n := int64(1); n <= 8; n++ {
		tok := env.seedToken(t, contract, n, testTokenURITmpl)
		_, err := env.queue.Enqueue(ctx, entities.TokenTarget(tok.ID))
		require.NoError(t, err)
	}

	var (
		mu   sync.Mutex
		seen = map[uuid.UUID]int{}
		wg   sync.WaitGroup
	)
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				jobs, err := env.queue.ClaimNext(ctx, 2)
				if err != nil || len(jobs) == 0 {
					return
				}
				mu.Lock()
				for _, j := range jobs {
					seen[j.ID]++
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, seen, 8)
	for id, n := range seen {
		assert.Equal(t, 1, n, "job %s claimed more than once", id)
	}
}

func TestJobQueue_Backoff(t *testing.T) {
	env := newTestEnv(t)

	assert.Equal(t, 10*time.Second, env.queue.Backoff(0))
	assert.Equal(t, 10*time.Second, env.queue.Backoff(1))
	assert.Equal(t, 20*time.Second, env.queue.Backoff(2))
	assert.Equal(t, 40*time.Second, env.queue.Backoff(3))
	assert.Equal(t, time.Minute, env.queue.Backoff(4))
	assert.Equal(t, time.Minute, env.queue.Backoff(40))
}
