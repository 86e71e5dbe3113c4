package middleware

import (
	"context"

	"golang.org/x/time/rate"

	"tango/envelope"
)

// RateLimit rejects requests beyond the token-bucket budget with a failure
// envelope. Rejected notifications are silently dropped by the server, same
// as any other notification failure.
func RateLimit(r float64, burst int) Middleware {
	limiter := rate.NewLimiter(rate.Limit(r), burst)
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *envelope.Request) *envelope.Response {
			if !limiter.Allow() {
				return envelope.FailResponse("rate limit exceeded")
			}
			return next(ctx, req)
		}
	}
}
