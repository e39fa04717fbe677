package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EnqueuerRepository is the persistence contract for task creation.
type EnqueuerRepository interface {
	CreateTask(ctx context.Context, task *Task) error
}

// Enqueuer persists one-time tasks for later execution.
type Enqueuer struct {
	repo EnqueuerRepository
}

// NewEnqueuer creates an Enqueuer backed by the given repository.
func NewEnqueuer(repo EnqueuerRepository) (*Enqueuer, error) {
	if repo == nil {
		return nil, ErrStorageNil
	}
	return &Enqueuer{repo: repo}, nil
}

// EnqueueOption configures a single Enqueue call.
type EnqueueOption func(*enqueueOptions)

type enqueueOptions struct {
	delay       time.Duration
	scheduledAt *time.Time
	maxRetries  int8
}

// WithDelay defers the task's earliest execution by the given duration.
func WithDelay(delay time.Duration) EnqueueOption {
	return func(o *enqueueOptions) {
		if delay > 0 {
			o.delay = delay
		}
	}
}

// WithScheduledAt sets an absolute earliest execution time.
func WithScheduledAt(at time.Time) EnqueueOption {
	return func(o *enqueueOptions) {
		o.scheduledAt = &at
	}
}

// WithMaxRetries sets the retry budget (0-10).
func WithMaxRetries(maxRetries int8) EnqueueOption {
	return func(o *enqueueOptions) {
		if maxRetries >= 0 && maxRetries <= 10 {
			o.maxRetries = maxRetries
		}
	}
}

// Enqueue stores a task of the given kind with a JSON-encoded payload.
func (e *Enqueuer) Enqueue(ctx context.Context, kind string, payload any, opts ...EnqueueOption) error {
	if kind == "" {
		return ErrKindEmpty
	}
	if payload == nil {
		return ErrPayloadNil
	}

	options := &enqueueOptions{maxRetries: 3}
	for _, opt := range opts {
		opt(options)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload of type %T: %w", payload, err)
	}

	scheduledAt := time.Now()
	if options.scheduledAt != nil {
		scheduledAt = *options.scheduledAt
	} else if options.delay > 0 {
		scheduledAt = scheduledAt.Add(options.delay)
	}

	task := &Task{
		ID:          uuid.New(),
		Kind:        kind,
		Payload:     data,
		Status:      StatusPending,
		MaxRetries:  options.maxRetries,
		ScheduledAt: scheduledAt,
		CreatedAt:   time.Now(),
	}

	if err := e.repo.CreateTask(ctx, task); err != nil {
		return fmt.Errorf("create %q task: %w", kind, err)
	}
	return nil
}
