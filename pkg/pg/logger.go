package pg

import "context"

// logger is the subset of slog used by this package, kept as an interface so
// migration output can be routed through whatever the application logs with.
type logger interface {
	InfoContext(ctx context.Context, msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)
}
