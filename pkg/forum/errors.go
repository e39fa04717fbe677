package forum

import "errors"

var (
	// ErrNotFound is returned by Store lookups for missing records.
	// Callers resolving mention/link targets treat it as "drop silently".
	ErrNotFound = errors.New("record not found")
)
