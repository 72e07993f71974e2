package log

import (
	"context"

	"github.com/rs/zerolog"
)

type ctxKey struct{}

// WithLogger stores a logger in the context.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// WithUserID stores a child of the context logger tagged with userID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return WithLogger(ctx, Ctx(ctx).With().Str(FieldUserID, userID).Logger())
}

// Ctx returns the context logger, or the global logger when none is set.
func Ctx(ctx context.Context) zerolog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(zerolog.Logger); ok {
		return l
	}
	return L()
}
