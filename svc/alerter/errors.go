package alerter

import "errors"

var (
	ErrStoreNil    = errors.New("store cannot be nil")
	ErrCreatorNil  = errors.New("creator cannot be nil")
	ErrResolverNil = errors.New("resolver cannot be nil")
	ErrNoPost      = errors.New("event carries no post")
)
