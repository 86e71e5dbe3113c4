package server

import (
	"context"
	"errors"
	"strings"
	"testing"

	"tango/codec"
	"tango/envelope"
)

func addFunc(args []any) ([]any, error) {
	sum := 0.0
	for _, a := range args {
		f, ok := a.(float64)
		if !ok {
			return nil, errors.New("add: arguments must be numbers")
		}
		sum += f
	}
	return []any{sum}, nil
}

func testNamespace() Namespace {
	return Namespace{
		"math": Namespace{
			"add":      Func(addFunc),
			"constant": 42, // present but not callable
		},
		"log": map[string]any{ // plain maps work as sub-namespaces too
			"write": Func(func(args []any) ([]any, error) {
				return nil, nil
			}),
		},
		"panics": Func(func(args []any) ([]any, error) {
			panic("boom")
		}),
	}
}

func dispatchSeq(t *testing.T, seq []any) []any {
	t.Helper()
	cdc := codec.GetCodec(codec.CodecTypeJSON)
	raw, err := cdc.Encode(seq)
	if err != nil {
		t.Fatal(err)
	}
	out, err := Dispatch(context.Background(), cdc, raw, testNamespace(), SafeInvoke)
	if err != nil {
		t.Fatal(err)
	}
	if out == nil {
		return nil
	}
	decoded, err := cdc.Decode(out)
	if err != nil {
		t.Fatal(err)
	}
	return decoded
}

func TestDispatchCall(t *testing.T) {
	resp := dispatchSeq(t, []any{"math.add", int(envelope.KindCall), 2, 3})
	if len(resp) != 2 || resp[0] != true {
		t.Fatalf("expect [true 5], got %v", resp)
	}
	if resp[1].(float64) != 5 {
		t.Fatalf("expect result 5, got %v", resp[1])
	}
}

func TestDispatchNoResults(t *testing.T) {
	// A call with no return values yields [true] — no nil placeholder.
	resp := dispatchSeq(t, []any{"log.write", int(envelope.KindCall), "hi"})
	if len(resp) != 1 || resp[0] != true {
		t.Fatalf("expect [true], got %v", resp)
	}
}

func TestDispatchPathInvalid(t *testing.T) {
	resp := dispatchSeq(t, []any{"math.missing", int(envelope.KindCall), 1})
	if len(resp) != 2 || resp[0] != false {
		t.Fatalf("expect failure envelope, got %v", resp)
	}
	if resp[1] != "tango server path invalid:math.missing" {
		t.Fatalf("error string mismatch: %v", resp[1])
	}

	// Descending through a callable is also a path failure.
	resp = dispatchSeq(t, []any{"math.add.deeper", int(envelope.KindCall)})
	if resp[0] != false || !strings.Contains(resp[1].(string), "tango server path invalid:") {
		t.Fatalf("expect path invalid, got %v", resp)
	}
}

func TestDispatchNoFunction(t *testing.T) {
	// "math" resolves to a namespace, "math.constant" to a plain value:
	// neither is callable.
	for _, method := range []string{"math", "math.constant"} {
		resp := dispatchSeq(t, []any{method, int(envelope.KindCall)})
		if len(resp) != 2 || resp[0] != false {
			t.Fatalf("%s: expect failure envelope, got %v", method, resp)
		}
		if resp[1] != "tango server path no function:"+method {
			t.Fatalf("%s: error string mismatch: %v", method, resp[1])
		}
	}
}

func TestDispatchHandlerFailure(t *testing.T) {
	resp := dispatchSeq(t, []any{"math.add", int(envelope.KindCall), "two", 3})
	if resp[0] != false {
		t.Fatalf("expect failure envelope, got %v", resp)
	}
	if resp[1] != "add: arguments must be numbers" {
		t.Fatalf("expect the handler error verbatim, got %v", resp[1])
	}
}

func TestDispatchPanicIsolation(t *testing.T) {
	resp := dispatchSeq(t, []any{"panics", int(envelope.KindCall)})
	if resp[0] != false {
		t.Fatalf("expect failure envelope, got %v", resp)
	}
	if resp[1] != "boom" {
		t.Fatalf("expect panic value as error string, got %v", resp[1])
	}
}

func TestDispatchNotificationSilence(t *testing.T) {
	// Success, path failure, handler failure, panic: a notification never
	// produces a message.
	cases := [][]any{
		{"log.write", int(envelope.KindNotification), "hi"},
		{"math.missing", int(envelope.KindNotification)},
		{"math.add", int(envelope.KindNotification), "two"},
		{"panics", int(envelope.KindNotification)},
	}
	for _, seq := range cases {
		if out := dispatchSeq(t, seq); out != nil {
			t.Errorf("%v: expect no message, got %v", seq, out)
		}
	}
}

func TestDispatchForgivingSeparators(t *testing.T) {
	// Stray separator characters between segments are ignored.
	resp := dispatchSeq(t, []any{"math..add", int(envelope.KindCall), 1, 2})
	if resp[0] != true || resp[1].(float64) != 3 {
		t.Fatalf("expect [true 3], got %v", resp)
	}
}

func TestDispatchMalformedRequest(t *testing.T) {
	// A decodable message with a broken request shape gets a failure reply
	// instead of silence, so the caller does not block forever.
	resp := dispatchSeq(t, []any{"math.add"})
	if len(resp) != 2 || resp[0] != false {
		t.Fatalf("expect failure envelope, got %v", resp)
	}
}

func TestDispatchUndecodable(t *testing.T) {
	cdc := codec.GetCodec(codec.CodecTypeJSON)
	_, err := Dispatch(context.Background(), cdc, []byte("not json"), testNamespace(), SafeInvoke)
	if err == nil {
		t.Fatal("expect codec error for undecodable input")
	}
}

func TestSafeInvoke(t *testing.T) {
	ok, results, errMsg := SafeInvoke(func(args []any) ([]any, error) {
		return []any{"a", "b"}, nil
	}, nil)
	if !ok || len(results) != 2 || errMsg != "" {
		t.Fatalf("unexpected outcome: %v %v %q", ok, results, errMsg)
	}

	ok, _, errMsg = SafeInvoke(func(args []any) ([]any, error) {
		return nil, errors.New("handler failed")
	}, nil)
	if ok || errMsg != "handler failed" {
		t.Fatalf("unexpected outcome: %v %q", ok, errMsg)
	}

	ok, _, errMsg = SafeInvoke(func(args []any) ([]any, error) {
		panic(errors.New("wrapped panic"))
	}, nil)
	if ok || errMsg != "wrapped panic" {
		t.Fatalf("unexpected outcome: %v %q", ok, errMsg)
	}
}

func TestNamespacePaths(t *testing.T) {
	paths := testNamespace().Paths()
	want := []string{"log.write", "math.add", "panics"}
	if len(paths) != len(want) {
		t.Fatalf("expect %v, got %v", want, paths)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Fatalf("expect %v, got %v", want, paths)
		}
	}
}
