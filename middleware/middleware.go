// Package middleware provides the server-side handler chain. A HandlerFunc
// maps one decoded request envelope to a response envelope; middleware wrap
// handlers onion-style around the namespace dispatcher.
//
// The response a handler returns is discarded by the server for notification
// requests, so middleware run for notifications too but their failure
// responses never reach the wire.
package middleware

import (
	"context"

	"tango/envelope"
)

type HandlerFunc func(ctx context.Context, req *envelope.Request) *envelope.Response

type Middleware func(next HandlerFunc) HandlerFunc

// Chain composes middlewares into one. Chain(A, B, C)(handler) runs
// A.before → B.before → C.before → handler → C.after → B.after → A.after.
func Chain(middlewares ...Middleware) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}
