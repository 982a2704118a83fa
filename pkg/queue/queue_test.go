package queue

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testClient connects to the Redis named by TEST_REDIS_ADDR, or skips.
func testClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set; skipping Redis integration test")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx := context.Background()
	require.NoError(t, client.Ping(ctx).Err())

	clear := func() {
		client.Del(ctx, QueueEmails, QueueEmailsDelayed, QueueDLQ)
	}
	clear()
	t.Cleanup(func() {
		clear()
		client.Close()
	})
	return client
}

func popJob(t *testing.T, client *redis.Client) *Job {
	t.Helper()
	raw, err := client.LPop(context.Background(), QueueEmails).Result()
	require.NoError(t, err)
	var job Job
	require.NoError(t, json.Unmarshal([]byte(raw), &job))
	return &job
}

func TestRetrySchedulesWithoutBlocking(t *testing.T) {
	client := testClient(t)
	ctx := context.Background()

	q := NewQueue(client, nil)
	q.RetryDelay = 300 * time.Millisecond

	require.NoError(t, q.EnqueueEmail(ctx, EmailPayload{
		EmailType:      "booking_confirmation",
		RecipientEmail: "alice@example.com",
		Subject:        "Booking Confirmed",
	}))
	job := popJob(t, client)

	// Retry must return promptly; the delay lives in the schedule, not
	// in the caller.
	start := time.Now()
	require.NoError(t, q.Retry(ctx, job))
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	// The job is parked in the delayed set, not back on the main queue.
	assert.Equal(t, int64(0), client.LLen(ctx, QueueEmails).Val())
	assert.Equal(t, int64(1), client.ZCard(ctx, QueueEmailsDelayed).Val())

	// Not due yet: nothing promotes.
	n, err := q.PromoteDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, int64(0), client.LLen(ctx, QueueEmails).Val())

	// Once the delay elapses the job re-enters the main queue.
	time.Sleep(q.RetryDelay + 50*time.Millisecond)
	n, err = q.PromoteDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, int64(0), client.ZCard(ctx, QueueEmailsDelayed).Val())

	retried := popJob(t, client)
	assert.Equal(t, job.ID, retried.ID)
	assert.Equal(t, 1, retried.Attempt)
}

func TestRetryDoesNotStallQueuedJobs(t *testing.T) {
	client := testClient(t)
	ctx := context.Background()

	q := NewQueue(client, nil)
	q.RetryDelay = time.Minute

	require.NoError(t, q.EnqueueEmail(ctx, EmailPayload{
		EmailType:      "booking_rejection",
		RecipientEmail: "bounce@example.com",
		Subject:        "Booking Update",
	}))
	require.NoError(t, q.EnqueueEmail(ctx, EmailPayload{
		EmailType:      "booking_confirmation",
		RecipientEmail: "bob@example.com",
		Subject:        "Booking Confirmed",
	}))

	failing := popJob(t, client)
	require.NoError(t, q.Retry(ctx, failing))

	// The job behind the failing one is immediately dequeuable.
	deadline, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	next, err := q.Dequeue(deadline)
	require.NoError(t, err)
	require.NotNil(t, next)

	var payload EmailPayload
	require.NoError(t, json.Unmarshal(next.Payload, &payload))
	assert.Equal(t, "bob@example.com", payload.RecipientEmail)
}

func TestRetryExhaustionMovesToDLQ(t *testing.T) {
	client := testClient(t)
	ctx := context.Background()

	q := NewQueue(client, nil)
	q.RetryDelay = time.Millisecond

	require.NoError(t, q.EnqueueEmail(ctx, EmailPayload{
		EmailType:      "password_reset",
		RecipientEmail: "gone@example.com",
		Subject:        "Password Reset",
	}))
	job := popJob(t, client)

	job.Attempt = MaxRetries - 1
	require.NoError(t, q.Retry(ctx, job))

	assert.Equal(t, int64(0), client.ZCard(ctx, QueueEmailsDelayed).Val())
	assert.Equal(t, int64(1), client.LLen(ctx, QueueDLQ).Val())
}
