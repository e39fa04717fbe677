package tasks_test

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/christian289/postalert/pkg/tasks"
)

type deliverPayload struct {
	URL string `json:"url"`
}

func TestEnqueuer(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("stores task with encoded payload", func(t *testing.T) {
		t.Parallel()

		storage := tasks.NewMemoryStorage()
		t.Cleanup(func() { _ = storage.Close() })

		enqueuer, err := tasks.NewEnqueuer(storage)
		require.NoError(t, err)

		require.NoError(t, enqueuer.Enqueue(ctx, "push.deliver", deliverPayload{URL: "https://push.example.com"}))

		snapshot := storage.Snapshot()
		require.Len(t, snapshot, 1)
		assert.Equal(t, "push.deliver", snapshot[0].Kind)
		assert.Equal(t, tasks.StatusPending, snapshot[0].Status)

		var payload deliverPayload
		require.NoError(t, json.Unmarshal(snapshot[0].Payload, &payload))
		assert.Equal(t, "https://push.example.com", payload.URL)
	})

	t.Run("delay pushes the scheduled time forward", func(t *testing.T) {
		t.Parallel()

		storage := tasks.NewMemoryStorage()
		t.Cleanup(func() { _ = storage.Close() })

		enqueuer, err := tasks.NewEnqueuer(storage)
		require.NoError(t, err)

		before := time.Now()
		require.NoError(t, enqueuer.Enqueue(ctx, "groupmail.send", deliverPayload{}, tasks.WithDelay(5*time.Minute)))

		snapshot := storage.Snapshot()
		require.Len(t, snapshot, 1)
		assert.True(t, snapshot[0].ScheduledAt.After(before.Add(4*time.Minute)))
	})

	t.Run("rejects empty kind and nil payload", func(t *testing.T) {
		t.Parallel()

		storage := tasks.NewMemoryStorage()
		t.Cleanup(func() { _ = storage.Close() })

		enqueuer, err := tasks.NewEnqueuer(storage)
		require.NoError(t, err)

		assert.ErrorIs(t, enqueuer.Enqueue(ctx, "", deliverPayload{}), tasks.ErrKindEmpty)
		assert.ErrorIs(t, enqueuer.Enqueue(ctx, "push.deliver", nil), tasks.ErrPayloadNil)
	})
}

func TestMemoryStorage_Claim(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	workerID := uuid.New()

	t.Run("claims oldest due task first", func(t *testing.T) {
		t.Parallel()

		storage := tasks.NewMemoryStorage()
		t.Cleanup(func() { _ = storage.Close() })

		now := time.Now()
		older := &tasks.Task{ID: uuid.New(), Kind: "a", Status: tasks.StatusPending, MaxRetries: 3, ScheduledAt: now.Add(-2 * time.Minute), CreatedAt: now}
		newer := &tasks.Task{ID: uuid.New(), Kind: "b", Status: tasks.StatusPending, MaxRetries: 3, ScheduledAt: now.Add(-time.Minute), CreatedAt: now}
		require.NoError(t, storage.CreateTask(ctx, newer))
		require.NoError(t, storage.CreateTask(ctx, older))

		claimed, err := storage.ClaimTask(ctx, workerID, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, older.ID, claimed.ID)
		assert.Equal(t, tasks.StatusProcessing, claimed.Status)
	})

	t.Run("future tasks are not claimable", func(t *testing.T) {
		t.Parallel()

		storage := tasks.NewMemoryStorage()
		t.Cleanup(func() { _ = storage.Close() })

		delayed := &tasks.Task{ID: uuid.New(), Kind: "a", Status: tasks.StatusPending, MaxRetries: 3, ScheduledAt: time.Now().Add(time.Hour), CreatedAt: time.Now()}
		require.NoError(t, storage.CreateTask(ctx, delayed))

		_, err := storage.ClaimTask(ctx, workerID, time.Minute)
		assert.ErrorIs(t, err, tasks.ErrNoTaskToClaim)
	})

	t.Run("failure reschedules with backoff", func(t *testing.T) {
		t.Parallel()

		storage := tasks.NewMemoryStorage()
		t.Cleanup(func() { _ = storage.Close() })

		task := &tasks.Task{ID: uuid.New(), Kind: "a", Status: tasks.StatusPending, MaxRetries: 2, ScheduledAt: time.Now().Add(-time.Minute), CreatedAt: time.Now()}
		require.NoError(t, storage.CreateTask(ctx, task))

		claimed, err := storage.ClaimTask(ctx, workerID, time.Minute)
		require.NoError(t, err)
		require.NoError(t, storage.FailTask(ctx, claimed.ID, "connection refused"))

		snapshot := storage.Snapshot()
		require.Len(t, snapshot, 1)
		assert.Equal(t, tasks.StatusPending, snapshot[0].Status)
		assert.EqualValues(t, 1, snapshot[0].RetryCount)
		assert.True(t, snapshot[0].ScheduledAt.After(time.Now()), "retry gets backoff")
	})

	t.Run("exhausted retries mark the task failed", func(t *testing.T) {
		t.Parallel()

		storage := tasks.NewMemoryStorage()
		t.Cleanup(func() { _ = storage.Close() })

		task := &tasks.Task{ID: uuid.New(), Kind: "a", Status: tasks.StatusPending, MaxRetries: 1, ScheduledAt: time.Now().Add(-time.Minute), CreatedAt: time.Now()}
		require.NoError(t, storage.CreateTask(ctx, task))

		claimed, err := storage.ClaimTask(ctx, workerID, time.Minute)
		require.NoError(t, err)
		require.NoError(t, storage.FailTask(ctx, claimed.ID, "connection refused"))

		snapshot := storage.Snapshot()
		require.Len(t, snapshot, 1)
		assert.Equal(t, tasks.StatusFailed, snapshot[0].Status)
		require.NotNil(t, snapshot[0].Error)
		assert.Equal(t, "connection refused", *snapshot[0].Error)
	})
}

func TestWorker_ProcessesTasks(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	storage := tasks.NewMemoryStorage()
	t.Cleanup(func() { _ = storage.Close() })

	enqueuer, err := tasks.NewEnqueuer(storage)
	require.NoError(t, err)

	var handled atomic.Int32
	var lastURL atomic.Value
	handler := tasks.NewHandler("push.deliver", func(_ context.Context, p deliverPayload) error {
		lastURL.Store(p.URL)
		handled.Add(1)
		return nil
	})

	worker, err := tasks.NewWorker(storage,
		tasks.WithPullInterval(10*time.Millisecond),
		tasks.WithMaxConcurrentTasks(2),
	)
	require.NoError(t, err)
	require.NoError(t, worker.RegisterHandler(handler))
	require.NoError(t, worker.Start(ctx))
	t.Cleanup(func() { _ = worker.Stop() })

	require.NoError(t, enqueuer.Enqueue(ctx, "push.deliver", deliverPayload{URL: "https://push.example.com"}))

	require.Eventually(t, func() bool {
		return handled.Load() == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "https://push.example.com", lastURL.Load())
}

func TestWorker_RequiresHandlers(t *testing.T) {
	t.Parallel()

	storage := tasks.NewMemoryStorage()
	t.Cleanup(func() { _ = storage.Close() })

	worker, err := tasks.NewWorker(storage)
	require.NoError(t, err)
	assert.ErrorIs(t, worker.Start(context.Background()), tasks.ErrNoHandlers)
}
