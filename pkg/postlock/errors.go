package postlock

import "errors"

var (
	ErrClientNil   = errors.New("redis client cannot be nil")
	ErrKeyEmpty    = errors.New("lock key cannot be empty")
	ErrNotAcquired = errors.New("lock could not be acquired")
)
