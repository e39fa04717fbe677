package recipients

import "errors"

// ErrStoreNil is returned when a Resolver is constructed without a store.
var ErrStoreNil = errors.New("store cannot be nil")
