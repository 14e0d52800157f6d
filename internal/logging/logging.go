// Package logging provides named, context-scoped loggers for scmem's
// subsystems.
package logging

import (
	"context"

	"go.uber.org/zap"
)

type contextKeyType string

const contextKey contextKeyType = "scmem-logger"

// Module returns a logger tagged with the given subsystem name, e.g.
// "scmem/segment" or "scmem/event". Callers that never call
// WithLogger on a context get a sane production default.
func Module(name string) *zap.SugaredLogger {
	base, err := zap.NewProduction()
	if err != nil {
		base = zap.NewNop()
	}

	return base.Sugar().Named(name)
}

// WithLogger attaches l to ctx so nested calls can retrieve it via
// FromContext without threading a logger parameter through every
// function signature.
func WithLogger(ctx context.Context, l *zap.SugaredLogger) context.Context {
	return context.WithValue(ctx, contextKey, l)
}

// FromContext returns the logger attached to ctx, or fallback if none
// was attached.
func FromContext(ctx context.Context, fallback *zap.SugaredLogger) *zap.SugaredLogger {
	if l, ok := ctx.Value(contextKey).(*zap.SugaredLogger); ok && l != nil {
		return l
	}

	return fallback
}
