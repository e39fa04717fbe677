package tasks

import "errors"

var (
	// ErrStorageNil is returned when a component is constructed without a
	// repository.
	ErrStorageNil = errors.New("repository cannot be nil")

	// ErrPayloadNil is returned when attempting to enqueue a nil payload.
	ErrPayloadNil = errors.New("payload cannot be nil")

	// ErrKindEmpty is returned when a task or handler has no kind.
	ErrKindEmpty = errors.New("task kind cannot be empty")

	// ErrNoTaskToClaim is returned by ClaimTask when no due task exists.
	// Workers treat it as an idle tick, not a failure.
	ErrNoTaskToClaim = errors.New("no task available to claim")

	// ErrHandlerNotFound is returned when a claimed task has no registered
	// handler.
	ErrHandlerNotFound = errors.New("no handler registered for task kind")

	// ErrNoHandlers is returned when a worker starts with no handlers.
	ErrNoHandlers = errors.New("no task handlers registered")

	// ErrTaskNotFound is returned for operations on an unknown task ID.
	ErrTaskNotFound = errors.New("task not found")
)
