package notify

import "errors"

var (
	// ErrNotFound is returned when a notification lookup matches nothing.
	ErrNotFound = errors.New("notification not found")

	// ErrDuplicateUnread is returned by Storage.Create when an unread row
	// with the same collapse key already exists. The creator retries the
	// losing insert as an update.
	ErrDuplicateUnread = errors.New("unread notification already exists for collapse key")

	// ErrNilPayload is returned when a notification is built or encoded
	// without a payload.
	ErrNilPayload = errors.New("notification payload cannot be nil")

	// ErrUnknownType is returned when decoding a payload for a type
	// outside the closed enum.
	ErrUnknownType = errors.New("unknown notification type")

	// ErrStorageNil is returned when a Creator is constructed without
	// storage.
	ErrStorageNil = errors.New("storage cannot be nil")
)
