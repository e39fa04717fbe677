package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStorage implements the enqueuer and worker repositories for tests
// and local development. Locks held by a dead worker expire in the
// background so their tasks become claimable again.
type MemoryStorage struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*Task

	lockTicker *time.Ticker
	done       chan struct{}
	closeOnce  sync.Once
}

// NewMemoryStorage creates an empty in-memory task storage.
func NewMemoryStorage() *MemoryStorage {
	ms := &MemoryStorage{
		tasks: make(map[uuid.UUID]*Task),
		done:  make(chan struct{}),
	}
	ms.lockTicker = time.NewTicker(time.Second)
	go ms.expireLoop()
	return ms
}

// Close stops the lock expiration goroutine.
func (ms *MemoryStorage) Close() error {
	ms.closeOnce.Do(func() {
		close(ms.done)
		ms.lockTicker.Stop()
	})
	return nil
}

func (ms *MemoryStorage) CreateTask(ctx context.Context, task *Task) error {
	if task == nil {
		return ErrPayloadNil
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, exists := ms.tasks[task.ID]; exists {
		return fmt.Errorf("task %s already exists", task.ID)
	}
	taskCopy := *task
	ms.tasks[task.ID] = &taskCopy
	return nil
}

func (ms *MemoryStorage) ClaimTask(ctx context.Context, workerID uuid.UUID, lockDuration time.Duration) (*Task, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := time.Now()
	var best *Task
	for _, task := range ms.tasks {
		if task.Status != StatusPending || task.ScheduledAt.After(now) {
			continue
		}
		if task.LockedUntil != nil && task.LockedUntil.After(now) {
			continue
		}
		if best == nil || task.ScheduledAt.Before(best.ScheduledAt) {
			best = task
		}
	}
	if best == nil {
		return nil, ErrNoTaskToClaim
	}

	lockUntil := now.Add(lockDuration)
	best.Status = StatusProcessing
	best.LockedUntil = &lockUntil
	best.LockedBy = &workerID

	taskCopy := *best
	return &taskCopy, nil
}

func (ms *MemoryStorage) CompleteTask(ctx context.Context, taskID uuid.UUID) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	task, exists := ms.tasks[taskID]
	if !exists {
		return ErrTaskNotFound
	}
	if task.Status != StatusProcessing {
		return fmt.Errorf("task %s is not processing", taskID)
	}

	now := time.Now()
	task.Status = StatusCompleted
	task.ProcessedAt = &now
	task.LockedUntil = nil
	task.LockedBy = nil
	return nil
}

func (ms *MemoryStorage) FailTask(ctx context.Context, taskID uuid.UUID, errorMsg string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	task, exists := ms.tasks[taskID]
	if !exists {
		return ErrTaskNotFound
	}
	if task.Status != StatusProcessing {
		return fmt.Errorf("task %s is not processing", taskID)
	}

	task.RetryCount++
	task.Error = &errorMsg
	task.LockedUntil = nil
	task.LockedBy = nil

	if task.RetryCount >= task.MaxRetries {
		task.Status = StatusFailed
		return nil
	}

	// Linear backoff keeps retries of a persistently failing destination
	// from hammering it.
	task.Status = StatusPending
	task.ScheduledAt = time.Now().Add(time.Duration(task.RetryCount) * 30 * time.Second)
	return nil
}

// Snapshot returns copies of all stored tasks, for tests.
func (ms *MemoryStorage) Snapshot() []Task {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	out := make([]Task, 0, len(ms.tasks))
	for _, task := range ms.tasks {
		out = append(out, *task)
	}
	return out
}

func (ms *MemoryStorage) expireLoop() {
	for {
		select {
		case <-ms.lockTicker.C:
			ms.expireLocks()
		case <-ms.done:
			return
		}
	}
}

func (ms *MemoryStorage) expireLocks() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := time.Now()
	for _, task := range ms.tasks {
		if task.Status == StatusProcessing && task.LockedUntil != nil && task.LockedUntil.Before(now) {
			task.Status = StatusPending
			task.LockedUntil = nil
			task.LockedBy = nil
		}
	}
}
