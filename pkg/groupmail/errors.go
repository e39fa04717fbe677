package groupmail

import "errors"

var (
	// ErrStoreNil is returned when a Dispatcher is constructed without a
	// store.
	ErrStoreNil = errors.New("store cannot be nil")

	// ErrEnqueuerNil is returned when a Dispatcher is constructed without
	// a task enqueuer.
	ErrEnqueuerNil = errors.New("enqueuer cannot be nil")

	// ErrSenderNil is returned when the send handler is built without a
	// sender.
	ErrSenderNil = errors.New("sender cannot be nil")

	// ErrInvalidConfig is returned by sender constructors on bad config.
	ErrInvalidConfig = errors.New("invalid group mail config")

	// ErrSendFailed wraps transport errors from the mail provider.
	ErrSendFailed = errors.New("failed to send group email")

	// ErrNoRecipient is returned when a scheduled send finds no one left
	// to email.
	ErrNoRecipient = errors.New("no recipient for group email")
)
