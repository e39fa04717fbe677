package pg

import "context"

// logger is the subset of *slog.Logger the migration path needs. Declaring
// it locally keeps the package importable without a logging dependency.
type logger interface {
	InfoContext(ctx context.Context, msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)
}
