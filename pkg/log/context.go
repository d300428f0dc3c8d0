package log

import (
	"context"

	"github.com/rs/zerolog"
)

type ctxKey struct{}

// WithLogger stores a logger in the context. Handlers put a
// request-scoped child logger here; everything downstream reads it back
// through Ctx.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// WithSession derives a context whose logger carries the session id, so
// every entry logged while serving one session operation correlates.
func WithSession(ctx context.Context, sessionID string) context.Context {
	return WithLogger(ctx, Ctx(ctx).With().Str(FieldSessionID, sessionID).Logger())
}

// Ctx returns the logger stored in the context, falling back to the
// global logger when the context carries none.
func Ctx(ctx context.Context) *zerolog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(zerolog.Logger); ok {
		return &l
	}
	return L()
}
