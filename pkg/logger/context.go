package logger

import (
	"context"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type ctxKey struct{}

// FromContext returns the logger stored in ctx, or Default.
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok {
		return l
	}
	return Default()
}

// WithContext returns a copy of ctx carrying l.
func WithContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// Attach makes l the request logger. Later middleware and code holding only
// the request context see the same logger.
func Attach(c echo.Context, l *zap.Logger) {
	req := c.Request()
	c.SetRequest(req.WithContext(WithContext(req.Context(), l)))
}

// FromEcho returns the request logger.
func FromEcho(c echo.Context) *zap.Logger {
	return FromContext(c.Request().Context())
}
