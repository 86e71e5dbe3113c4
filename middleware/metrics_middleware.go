package middleware

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"tango/envelope"
)

// Metrics counts dispatched requests by method, kind, and outcome, and
// records handler durations. Collectors are registered on reg, so tests can
// pass their own registry.
func Metrics(reg prometheus.Registerer) Middleware {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tango",
		Subsystem: "server",
		Name:      "requests_total",
		Help:      "Dispatched requests by method, kind, and outcome.",
	}, []string{"method", "kind", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "tango",
		Subsystem: "server",
		Name:      "request_duration_seconds",
		Help:      "Handler execution time by method.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})
	reg.MustRegister(requests, duration)

	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *envelope.Request) *envelope.Response {
			start := time.Now()
			resp := next(ctx, req)
			outcome := "ok"
			if resp != nil && !resp.OK {
				outcome = "error"
			}
			requests.WithLabelValues(req.Method, req.Kind.String(), outcome).Inc()
			duration.WithLabelValues(req.Method).Observe(time.Since(start).Seconds())
			return resp
		}
	}
}
