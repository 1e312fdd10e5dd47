// Package logging defines the minimal structured-logging interface used
// across the catalog engine. Implementations can wrap slog, zap, zerolog,
// etc.; the engine only depends on this interface.
package logging

import "context"

// Logger is a context-aware, structured logger.
//
// The variadic args are interpreted as key–value pairs, e.g.:
//
//	log.Info(ctx, "imported version", "pkg", name, "version", coord)
type Logger interface {
	// Debug logs fine-grained diagnostics (payload probing, cache fills).
	Debug(ctx context.Context, msg string, args ...any)

	// Info logs an informational message.
	Info(ctx context.Context, msg string, args ...any)

	// Warn logs unusual but non-fatal conditions, such as a failed payload
	// enrichment that the import carries on without.
	Warn(ctx context.Context, msg string, args ...any)

	// Error logs failures.
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given key–value pairs.
	With(args ...any) Logger
}
