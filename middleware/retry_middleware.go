package middleware

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"tango/envelope"
)

// Retry re-runs the handler on transient failures (timeouts, rate limits)
// with exponential backoff. Only mount it in front of idempotent handlers;
// the dispatcher cannot tell whether a failed call had side effects.
func Retry(log *zap.Logger, maxRetries int, baseDelay time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *envelope.Request) *envelope.Response {
			resp := next(ctx, req)
			for i := 0; i < maxRetries; i++ {
				if resp == nil || resp.OK {
					return resp
				}
				if !transient(resp.Err) {
					return resp // Non-retryable failure, return immediately
				}
				log.Info("retrying request",
					zap.String("method", req.Method),
					zap.Int("attempt", i+1),
					zap.String("error", resp.Err))
				time.Sleep(baseDelay * time.Duration(1<<i)) // Exponential backoff
				resp = next(ctx, req)
			}
			return resp // Last response after retries
		}
	}
}

func transient(errMsg string) bool {
	return strings.Contains(errMsg, "timed out") || strings.Contains(errMsg, "rate limit exceeded")
}
