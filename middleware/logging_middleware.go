package middleware

import (
	"context"
	"time"

	"go.uber.org/zap"

	"tango/envelope"
)

// Logging logs every dispatched request with its method, kind, and duration.
// Failure envelopes are logged at warn level with the server-side description.
func Logging(log *zap.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *envelope.Request) *envelope.Response {
			start := time.Now()
			resp := next(ctx, req)
			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.Stringer("kind", req.Kind),
				zap.Duration("duration", time.Since(start)),
			}
			if resp != nil && !resp.OK {
				log.Warn("dispatch failed", append(fields, zap.String("error", resp.Err))...)
			} else {
				log.Info("dispatch", fields...)
			}
			return resp
		}
	}
}
