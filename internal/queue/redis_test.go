package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestQueue(t *testing.T) (*RedisQueue, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisQueue(client), mr
}

func statusJob(priority int) *Job {
	payload, _ := json.Marshal(map[string]string{"email": "user@example.com", "status": "bounced"})
	return &Job{
		Type:     TypeEmailStatusUpdate,
		Payload:  payload,
		Priority: priority,
	}
}

func TestEnqueueDequeueRoundTrip(t *testing.T) {
	q, _ := setupTestQueue(t)
	ctx := context.Background()

	job := statusJob(0)
	require.NoError(t, q.Enqueue(ctx, job, 0))
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, 3, job.MaxAttempts)

	got, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, TypeEmailStatusUpdate, got.Type)
	assert.JSONEq(t, string(job.Payload), string(got.Payload))

	_, err = q.Dequeue(ctx)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestDequeueSkipsDelayedJobs(t *testing.T) {
	q, mr := setupTestQueue(t)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, statusJob(0), time.Hour))

	_, err := q.Dequeue(ctx)
	assert.ErrorIs(t, err, ErrEmpty)

	// The job is still parked in the set, not lost.
	members, err := mr.ZMembers(defaultQueueKey)
	require.NoError(t, err)
	assert.Len(t, members, 1)
}

func TestPriorityOrdersReadyJobs(t *testing.T) {
	q, _ := setupTestQueue(t)
	ctx := context.Background()

	low := statusJob(0)
	high := statusJob(10)
	require.NoError(t, q.Enqueue(ctx, low, 0))
	require.NoError(t, q.Enqueue(ctx, high, 0))

	first, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, high.ID, first.ID)

	second, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, low.ID, second.ID)
}

func TestRetryReschedulesWithBackoff(t *testing.T) {
	q, mr := setupTestQueue(t)
	ctx := context.Background()

	job := statusJob(0)
	require.NoError(t, q.Enqueue(ctx, job, 0))
	got, err := q.Dequeue(ctx)
	require.NoError(t, err)

	require.NoError(t, q.Retry(ctx, got))
	assert.Equal(t, 1, got.Attempts)

	// Backoff pushes it past the ready deadline.
	_, err = q.Dequeue(ctx)
	assert.ErrorIs(t, err, ErrEmpty)

	members, err := mr.ZMembers(defaultQueueKey)
	require.NoError(t, err)
	assert.Len(t, members, 1)
}

func TestRetryExhaustionDeadLetters(t *testing.T) {
	q, _ := setupTestQueue(t)
	ctx := context.Background()

	job := statusJob(0)
	job.MaxAttempts = 2
	job.Attempts = 1
	require.NoError(t, q.Enqueue(ctx, job, 0))
	got, err := q.Dequeue(ctx)
	require.NoError(t, err)

	err = q.Retry(ctx, got)
	assert.ErrorIs(t, err, ErrExhausted)

	dead, err := q.DeadLetters(ctx, 10)
	require.NoError(t, err)
	require.Len(t, dead, 1)
	assert.Equal(t, job.ID, dead[0].ID)
	assert.Equal(t, 2, dead[0].Attempts)

	_, err = q.Dequeue(ctx)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestBackoffCurve(t *testing.T) {
	assert.Equal(t, 5*time.Second, backoff(1))
	assert.Equal(t, 10*time.Second, backoff(2))
	assert.Equal(t, 20*time.Second, backoff(3))
	assert.Equal(t, maxRetryDelay, backoff(8))
	assert.Equal(t, maxRetryDelay, backoff(60))
}
