package jobqueue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestQueue(cfg Config) *Queue {
	return New(cfg, zap.NewNop())
}

func TestClaimNextExclusive(t *testing.T) {
	ctx := context.Background()
	queue := newTestQueue(Config{})
	tenant := uuid.New()

	const jobs = 50
	for i := 0; i < jobs; i++ {
		queue.Enqueue(ctx, tenant, "dispatch", nil)
	}

	var mu sync.Mutex
	claimed := make(map[uuid.UUID]string)

	var wg sync.WaitGroup
	for _, workerID := range []string{"worker-a", "worker-b", "worker-c"} {
		wg.Add(1)
		go func(workerID string) {
			defer wg.Done()
			for {
				job := queue.ClaimNext(ctx, workerID, time.Minute)
				if job == nil {
					return
				}
				mu.Lock()
				previous, seen := claimed[job.ID]
				claimed[job.ID] = workerID
				mu.Unlock()
				assert.False(t, seen, "job %s claimed by both %s and %s", job.ID, previous, workerID)
			}
		}(workerID)
	}
	wg.Wait()

	assert.Len(t, claimed, jobs)
}

func TestCompleteRequiresLeaseHolder(t *testing.T) {
	ctx := context.Background()
	queue := newTestQueue(Config{})
	tenant := uuid.New()

	id := queue.Enqueue(ctx, tenant, "dispatch", nil)
	job := queue.ClaimNext(ctx, "worker-a", time.Minute)
	require.NotNil(t, job)
	require.Equal(t, id, job.ID)

	assert.ErrorIs(t, queue.Complete(ctx, id, "worker-b"), ErrNotLeaseHolder)
	require.NoError(t, queue.Complete(ctx, id, "worker-a"))

	stored, err := queue.Get(id)
	require.NoError(t, err)
	assert.Equal(t, StatusDone, stored.Status)

	// completing twice is not possible either
	assert.ErrorIs(t, queue.Complete(ctx, id, "worker-a"), ErrNotLeaseHolder)
}

func TestTransientFailureRequeuesWithBackoff(t *testing.T) {
	ctx := context.Background()
	queue := newTestQueue(Config{MaxAttempts: 3, Backoff: time.Second})
	tenant := uuid.New()

	base := time.Now()
	queue.now = func() time.Time { return base }

	id := queue.Enqueue(ctx, tenant, "dispatch", nil)

	job := queue.ClaimNext(ctx, "worker-a", time.Minute)
	require.NotNil(t, job)
	require.NoError(t, queue.Fail(ctx, id, "worker-a", false, errors.New("boom")))

	stored, err := queue.Get(id)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, stored.Status)
	assert.Equal(t, base.Add(time.Second), stored.NotBefore)
	assert.Equal(t, "boom", stored.LastError)

	// not claimable until the backoff elapses
	assert.Nil(t, queue.ClaimNext(ctx, "worker-a", time.Minute))

	queue.now = func() time.Time { return base.Add(2 * time.Second) }
	job = queue.ClaimNext(ctx, "worker-a", time.Minute)
	require.NotNil(t, job)
	assert.Equal(t, 2, job.Attempts)

	// second failure doubles the delay
	require.NoError(t, queue.Fail(ctx, id, "worker-a", false, errors.New("boom again")))
	stored, err = queue.Get(id)
	require.NoError(t, err)
	assert.Equal(t, base.Add(2*time.Second).Add(2*time.Second), stored.NotBefore)
}

func TestAttemptBudgetDeadLetters(t *testing.T) {
	ctx := context.Background()
	queue := newTestQueue(Config{MaxAttempts: 2, Backoff: time.Nanosecond})
	tenant := uuid.New()

	base := time.Now()
	now := base
	queue.now = func() time.Time { return now }

	id := queue.Enqueue(ctx, tenant, "dispatch", nil)

	for attempt := 1; attempt <= 2; attempt++ {
		now = now.Add(time.Second)
		job := queue.ClaimNext(ctx, "worker-a", time.Minute)
		require.NotNil(t, job, "attempt %d", attempt)
		require.NoError(t, queue.Fail(ctx, id, "worker-a", false, errors.New("still broken")))
	}

	stored, err := queue.Get(id)
	require.NoError(t, err)
	assert.Equal(t, StatusDead, stored.Status)

	dead := queue.DeadLetters()
	require.Len(t, dead, 1)
	assert.Equal(t, id, dead[0].ID)
	assert.Equal(t, "still broken", dead[0].LastError)
}

func TestPermanentFailureDeadLettersImmediately(t *testing.T) {
	ctx := context.Background()
	queue := newTestQueue(Config{MaxAttempts: 5})
	tenant := uuid.New()

	id := queue.Enqueue(ctx, tenant, "dispatch", nil)
	job := queue.ClaimNext(ctx, "worker-a", time.Minute)
	require.NotNil(t, job)
	require.NoError(t, queue.Fail(ctx, id, "worker-a", true, errors.New("bad payload")))

	stored, err := queue.Get(id)
	require.NoError(t, err)
	assert.Equal(t, StatusDead, stored.Status)
	assert.Equal(t, 1, stored.Attempts)
}

func TestExpiredLeaseIsReclaimable(t *testing.T) {
	ctx := context.Background()
	queue := newTestQueue(Config{MaxAttempts: 5})
	tenant := uuid.New()

	base := time.Now()
	queue.now = func() time.Time { return base }

	id := queue.Enqueue(ctx, tenant, "dispatch", []byte("payload"))

	job := queue.ClaimNext(ctx, "worker-a", 30*time.Second)
	require.NotNil(t, job)

	// still leased, nothing claimable
	assert.Nil(t, queue.ClaimNext(ctx, "worker-b", 30*time.Second))

	queue.now = func() time.Time { return base.Add(time.Minute) }
	reclaimed := queue.ClaimNext(ctx, "worker-b", 30*time.Second)
	require.NotNil(t, reclaimed)
	assert.Equal(t, id, reclaimed.ID)
	assert.Equal(t, 2, reclaimed.Attempts)

	// the original holder lost its lease
	assert.ErrorIs(t, queue.Complete(ctx, id, "worker-a"), ErrNotLeaseHolder)
	assert.NoError(t, queue.Complete(ctx, id, "worker-b"))
}

func TestEnqueueOrderIsClaimOrder(t *testing.T) {
	ctx := context.Background()
	queue := newTestQueue(Config{})
	tenant := uuid.New()

	first := queue.Enqueue(ctx, tenant, "dispatch", nil)
	second := queue.Enqueue(ctx, tenant, "dispatch", nil)

	job := queue.ClaimNext(ctx, "worker-a", time.Minute)
	require.NotNil(t, job)
	assert.Equal(t, first, job.ID)

	job = queue.ClaimNext(ctx, "worker-a", time.Minute)
	require.NotNil(t, job)
	assert.Equal(t, second, job.ID)
}
