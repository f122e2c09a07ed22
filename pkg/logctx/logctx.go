package logctx

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ctxKey string

const (
	// Keys shared by gin.Context and context.Context.
	LoggerKey  = "logger"
	TraceIDKey = "traceID"
	AdminKey   = "admin_email"
)

var (
	loggerCtxKey = ctxKey(LoggerKey)
	traceCtxKey  = ctxKey(TraceIDKey)
	adminCtxKey  = ctxKey(AdminKey)
)

// FromGin returns a request-scoped logger from gin.Context if present,
// otherwise returns the provided base logger.
func FromGin(c *gin.Context, base *zap.SugaredLogger) *zap.SugaredLogger {
	if c == nil {
		return base
	}
	if l, ok := c.Get(LoggerKey); ok {
		if lg, ok := l.(*zap.SugaredLogger); ok && lg != nil {
			return lg
		}
	}
	return FromCtx(c.Request.Context(), base)
}

// FromCtx returns a logger from context if set, otherwise enriches base with
// trace_id/admin_email found in the context.
func FromCtx(ctx context.Context, base *zap.SugaredLogger) *zap.SugaredLogger {
	if ctx == nil {
		return base
	}
	if lg, ok := ctx.Value(loggerCtxKey).(*zap.SugaredLogger); ok && lg != nil {
		return lg
	}
	var fields []interface{}
	if tid, ok := ctx.Value(traceCtxKey).(string); ok && tid != "" {
		fields = append(fields, "trace_id", tid)
	}
	if email, ok := ctx.Value(adminCtxKey).(string); ok && email != "" {
		fields = append(fields, "admin_email", email)
	}
	if len(fields) > 0 {
		return base.With(fields...)
	}
	return base
}

func WithLogger(ctx context.Context, l *zap.SugaredLogger) context.Context {
	return context.WithValue(ctx, loggerCtxKey, l)
}

func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceCtxKey, traceID)
}

func WithAdmin(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, adminCtxKey, email)
}
