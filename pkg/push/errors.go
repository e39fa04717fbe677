package push

import "errors"

var (
	// ErrStoreNil is returned when a Dispatcher is constructed without a
	// store.
	ErrStoreNil = errors.New("store cannot be nil")

	// ErrEnqueuerNil is returned when a Dispatcher is constructed without
	// a task enqueuer.
	ErrEnqueuerNil = errors.New("enqueuer cannot be nil")

	// ErrDeliveryFailed is returned by the deliverer when the push server
	// answers with a non-2xx status.
	ErrDeliveryFailed = errors.New("push server rejected delivery")
)
