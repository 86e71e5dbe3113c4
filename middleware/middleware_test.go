package middleware

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"tango/envelope"
)

// echoHandler returns a success response immediately.
func echoHandler(ctx context.Context, req *envelope.Request) *envelope.Response {
	return envelope.OKResponse("ok")
}

// slowHandler sleeps 200ms before answering.
func slowHandler(ctx context.Context, req *envelope.Request) *envelope.Response {
	time.Sleep(200 * time.Millisecond)
	return envelope.OKResponse("ok")
}

func testRequest() *envelope.Request {
	return &envelope.Request{Method: "math.add", Kind: envelope.KindCall, Args: []any{1, 2}}
}

func TestLogging(t *testing.T) {
	handler := Logging(zap.NewNop())(echoHandler)

	resp := handler(context.Background(), testRequest())
	if resp == nil {
		t.Fatal("expect non-nil response")
	}
	if !resp.OK || resp.Results[0] != "ok" {
		t.Fatalf("expect success response, got %+v", resp)
	}
}

func TestTimeoutPass(t *testing.T) {
	// 500ms budget, fast handler: passes through untouched.
	handler := Timeout(500 * time.Millisecond)(echoHandler)

	resp := handler(context.Background(), testRequest())
	if !resp.OK {
		t.Fatalf("expect no error, got %q", resp.Err)
	}
}

func TestTimeoutExceeded(t *testing.T) {
	// 50ms budget, handler needs 200ms: times out.
	handler := Timeout(50 * time.Millisecond)(slowHandler)

	resp := handler(context.Background(), testRequest())
	if resp.OK || resp.Err != "request timed out" {
		t.Fatalf("expect timeout error, got %+v", resp)
	}
}

func TestRateLimit(t *testing.T) {
	// rate=1/s, burst=2: first 2 pass immediately, the 3rd is rejected.
	handler := RateLimit(1, 2)(echoHandler)
	req := testRequest()

	for i := 0; i < 2; i++ {
		resp := handler(context.Background(), req)
		if !resp.OK {
			t.Fatalf("request %d should pass, got error: %s", i, resp.Err)
		}
	}

	resp := handler(context.Background(), req)
	if resp.OK || resp.Err != "rate limit exceeded" {
		t.Fatalf("request 3 should be rate limited, got: %+v", resp)
	}
}

func TestRetryTransient(t *testing.T) {
	attempts := 0
	flaky := func(ctx context.Context, req *envelope.Request) *envelope.Response {
		attempts++
		if attempts < 3 {
			return envelope.FailResponse("request timed out")
		}
		return envelope.OKResponse("ok")
	}

	handler := Retry(zap.NewNop(), 3, time.Millisecond)(flaky)
	resp := handler(context.Background(), testRequest())
	if !resp.OK {
		t.Fatalf("expect success after retries, got %+v", resp)
	}
	if attempts != 3 {
		t.Fatalf("expect 3 attempts, got %d", attempts)
	}
}

func TestRetryNonTransient(t *testing.T) {
	attempts := 0
	failing := func(ctx context.Context, req *envelope.Request) *envelope.Response {
		attempts++
		return envelope.FailResponse("tango server path invalid:math.add")
	}

	handler := Retry(zap.NewNop(), 3, time.Millisecond)(failing)
	resp := handler(context.Background(), testRequest())
	if resp.OK {
		t.Fatal("expect failure response")
	}
	if attempts != 1 {
		t.Fatalf("non-transient failure must not be retried, got %d attempts", attempts)
	}
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	handler := Metrics(reg)(echoHandler)

	handler(context.Background(), testRequest())
	handler(context.Background(), testRequest())

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, mf := range families {
		if mf.GetName() == "tango_server_requests_total" {
			found = true
			if len(mf.GetMetric()) != 1 {
				t.Fatalf("expect one label combination, got %d", len(mf.GetMetric()))
			}
			if got := mf.GetMetric()[0].GetCounter().GetValue(); got != 2 {
				t.Fatalf("expect counter 2, got %v", got)
			}
		}
	}
	if !found {
		t.Fatal("tango_server_requests_total not gathered")
	}
}

func TestChain(t *testing.T) {
	// Chain Logging + Timeout, verify the request passes through.
	chained := Chain(Logging(zap.NewNop()), Timeout(500*time.Millisecond))
	handler := chained(echoHandler)

	resp := handler(context.Background(), testRequest())
	if resp == nil {
		t.Fatal("expect non-nil response")
	}
	if !resp.OK {
		t.Fatalf("expect no error, got %q", resp.Err)
	}
}

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next HandlerFunc) HandlerFunc {
			return func(ctx context.Context, req *envelope.Request) *envelope.Response {
				order = append(order, name+"-before")
				resp := next(ctx, req)
				order = append(order, name+"-after")
				return resp
			}
		}
	}

	handler := Chain(mark("A"), mark("B"))(echoHandler)
	handler(context.Background(), testRequest())

	want := []string{"A-before", "B-before", "B-after", "A-after"}
	if len(order) != len(want) {
		t.Fatalf("expect %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expect %v, got %v", want, order)
		}
	}
}
