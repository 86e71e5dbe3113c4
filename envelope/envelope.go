// Package envelope defines the wire-level message shapes of the tango protocol.
//
// Both requests and responses travel as ordered, untyped sequences that get
// serialized by the codec layer and wrapped in a protocol frame for
// transmission over TCP:
//
//   - Request:  [method, kind, arg1, ..., argN]
//   - Response: [true, result1, ..., resultM]  on success
//     [false, errorMessage]           on failure
//
// A response is never produced for a request whose kind is Notification.
package envelope

import (
	"fmt"
	"regexp"
)

// Kind tags a request as expecting a response (Call) or not (Notification).
// The tag is fixed at construction and travels as a small integer on the wire.
type Kind int

const (
	KindCall         Kind = 0 // Expects exactly one response envelope
	KindNotification Kind = 1 // One-way, the server stays silent even on failure
)

func (k Kind) String() string {
	if k == KindNotification {
		return "notification"
	}
	return "call"
}

// methodPattern is the strict client-side form: dot-separated identifier
// segments, nothing else. The server is more forgiving (see Segments).
var methodPattern = regexp.MustCompile(`^[A-Za-z0-9_]+(\.[A-Za-z0-9_]+)*$`)

// segmentPattern extracts identifier segments from a method path, ignoring
// whatever separates them. "math..add" and "math.add" both yield [math add].
var segmentPattern = regexp.MustCompile(`[A-Za-z0-9_]+`)

// ValidMethod reports whether s is a well-formed dotted method path.
func ValidMethod(s string) bool {
	return methodPattern.MatchString(s)
}

// Segments splits a method path into its identifier segments.
func Segments(method string) []string {
	return segmentPattern.FindAllString(method, -1)
}

// Request carries one method invocation or notification.
type Request struct {
	Method string // Dotted path into the server namespace, e.g. "math.add"
	Kind   Kind
	Args   []any
}

// NewRequest builds a request, enforcing the strict method path form.
func NewRequest(method string, kind Kind, args []any) (*Request, error) {
	if !ValidMethod(method) {
		return nil, fmt.Errorf("envelope: invalid method path %q", method)
	}
	if kind != KindCall && kind != KindNotification {
		return nil, fmt.Errorf("envelope: invalid request kind %d", kind)
	}
	return &Request{Method: method, Kind: kind, Args: args}, nil
}

// Sequence returns the ordered wire form [method, kind, args...].
func (r *Request) Sequence() []any {
	seq := make([]any, 0, 2+len(r.Args))
	seq = append(seq, r.Method, int(r.Kind))
	seq = append(seq, r.Args...)
	return seq
}

// ParseRequest rebuilds a request from its decoded wire sequence.
//
// Codecs decode the kind tag as whatever numeric type they favor (float64 for
// JSON, int64 or smaller for msgpack), so the tag is matched tolerantly.
// The method path is only required to be a non-empty string here; segment
// extraction on the server side forgives stray separators.
func ParseRequest(seq []any) (*Request, error) {
	if len(seq) < 2 {
		return nil, fmt.Errorf("envelope: request needs at least 2 elements, got %d", len(seq))
	}
	method, ok := seq[0].(string)
	if !ok || method == "" {
		return nil, fmt.Errorf("envelope: request method must be a non-empty string, got %T", seq[0])
	}
	kind, ok := kindOf(seq[1])
	if !ok {
		return nil, fmt.Errorf("envelope: unknown request kind %v", seq[1])
	}
	return &Request{Method: method, Kind: kind, Args: seq[2:]}, nil
}

// kindOf decodes the numeric kind tag regardless of the concrete type the
// codec produced.
func kindOf(v any) (Kind, bool) {
	var n int64
	switch t := v.(type) {
	case int:
		n = int64(t)
	case int8:
		n = int64(t)
	case int16:
		n = int64(t)
	case int32:
		n = int64(t)
	case int64:
		n = t
	case uint:
		n = int64(t)
	case uint8:
		n = int64(t)
	case uint16:
		n = int64(t)
	case uint32:
		n = int64(t)
	case uint64:
		n = int64(t)
	case float32:
		n = int64(t)
	case float64:
		n = int64(t)
	default:
		return 0, false
	}
	if n != int64(KindCall) && n != int64(KindNotification) {
		return 0, false
	}
	return Kind(n), true
}

// Response carries the outcome of a call.
type Response struct {
	OK      bool
	Results []any  // Trailing elements on success; may be empty
	Err     string // Failure description; set only when OK is false
}

// OKResponse builds a success response with the given results.
func OKResponse(results ...any) *Response {
	return &Response{OK: true, Results: results}
}

// FailResponse builds a failure response with the given description.
func FailResponse(msg string) *Response {
	return &Response{OK: false, Err: msg}
}

// Sequence returns the ordered wire form: [true, results...] or [false, err].
func (r *Response) Sequence() []any {
	if !r.OK {
		return []any{false, r.Err}
	}
	seq := make([]any, 0, 1+len(r.Results))
	seq = append(seq, true)
	seq = append(seq, r.Results...)
	return seq
}

// ParseResponse rebuilds a response from its decoded wire sequence.
// The first element is always the boolean discriminator.
func ParseResponse(seq []any) (*Response, error) {
	if len(seq) < 1 {
		return nil, fmt.Errorf("envelope: empty response sequence")
	}
	ok, isBool := seq[0].(bool)
	if !isBool {
		return nil, fmt.Errorf("envelope: response discriminator must be a bool, got %T", seq[0])
	}
	if ok {
		return &Response{OK: true, Results: seq[1:]}, nil
	}
	if len(seq) < 2 {
		return nil, fmt.Errorf("envelope: failure response missing error description")
	}
	msg, isStr := seq[1].(string)
	if !isStr {
		return nil, fmt.Errorf("envelope: failure description must be a string, got %T", seq[1])
	}
	return &Response{OK: false, Err: msg}, nil
}
