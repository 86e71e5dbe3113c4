package middleware

import (
	"context"
	"time"

	"tango/envelope"
)

// Timeout bounds handler execution. The handler keeps running in its own
// goroutine after the deadline; only the response is abandoned.
func Timeout(timeout time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *envelope.Request) *envelope.Response {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			done := make(chan *envelope.Response, 1)
			go func() {
				done <- next(ctx, req)
			}()

			select {
			case resp := <-done:
				return resp
			case <-ctx.Done():
				return envelope.FailResponse("request timed out")
			}
		}
	}
}
