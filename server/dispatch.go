// Package server implements the tango server side: the namespace dispatcher
// that resolves dotted method paths and invokes them under failure isolation,
// and the TCP server runtime around it.
package server

import (
	"context"
	"fmt"
	"sort"

	"tango/codec"
	"tango/envelope"
	"tango/middleware"
)

// Namespace is a nested mapping from path segment to either a sub-namespace
// or a callable. The deployer decides what scope to expose as the root.
type Namespace map[string]any

// Func is the boxed callable shape the dispatcher invokes: an ordered untyped
// argument list in, an ordered untyped result list or an error out.
type Func func(args []any) ([]any, error)

// Invoker is the protected-invoke port: it runs a callable and always returns
// a uniform outcome instead of letting the failure escape. The returned shape
// IS the response envelope shape — a success flag plus either results or one
// error string.
type Invoker func(fn Func, args []any) (ok bool, results []any, errMsg string)

// SafeInvoke is the standard Invoker: errors are flattened to their message,
// panics are recovered and stringified. A handler failure can therefore never
// take down the dispatcher.
func SafeInvoke(fn Func, args []any) (ok bool, results []any, errMsg string) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			results = nil
			errMsg = fmt.Sprint(r)
		}
	}()
	res, err := fn(args)
	if err != nil {
		return false, nil, err.Error()
	}
	return true, res, ""
}

// Failure message prefixes, fixed by the wire protocol.
const (
	errPathInvalid = "tango server path invalid:"
	errNoFunction  = "tango server path no function:"
)

// Resolve walks the namespace one segment at a time and returns the member
// the method path names. Segment extraction is forgiving: any run of
// identifier characters is a segment, stray separators are ignored.
func (ns Namespace) Resolve(method string) (any, bool) {
	segments := envelope.Segments(method)
	if len(segments) == 0 {
		return nil, false
	}
	var current any = ns
	for _, segment := range segments {
		sub, ok := asNamespace(current)
		if !ok {
			return nil, false
		}
		current, ok = sub[segment]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// Paths returns every dotted path in the namespace that resolves to a
// callable, sorted. Used for introspection.
func (ns Namespace) Paths() []string {
	var paths []string
	var walk func(prefix string, n Namespace)
	walk = func(prefix string, n Namespace) {
		for name, member := range n {
			path := name
			if prefix != "" {
				path = prefix + "." + name
			}
			if sub, ok := asNamespace(member); ok {
				walk(path, sub)
				continue
			}
			if _, ok := asFunc(member); ok {
				paths = append(paths, path)
			}
		}
	}
	walk("", ns)
	sort.Strings(paths)
	return paths
}

func asNamespace(v any) (Namespace, bool) {
	switch t := v.(type) {
	case Namespace:
		return t, true
	case map[string]any:
		return Namespace(t), true
	default:
		return nil, false
	}
}

func asFunc(v any) (Func, bool) {
	switch t := v.(type) {
	case Func:
		return t, true
	case func(args []any) ([]any, error):
		return Func(t), true
	default:
		return nil, false
	}
}

// NamespaceHandler builds the core handler: resolve the method path against
// root, check callability, and run the member through the protected-invoke
// port. Every failure becomes a well-formed failure envelope; the handler
// itself never panics.
func NamespaceHandler(root Namespace, inv Invoker) middleware.HandlerFunc {
	return func(ctx context.Context, req *envelope.Request) *envelope.Response {
		member, found := root.Resolve(req.Method)
		if !found {
			return envelope.FailResponse(errPathInvalid + req.Method)
		}
		fn, callable := asFunc(member)
		if !callable {
			return envelope.FailResponse(errNoFunction + req.Method)
		}
		ok, results, errMsg := inv(fn, req.Args)
		if !ok {
			return envelope.FailResponse(errMsg)
		}
		return envelope.OKResponse(results...)
	}
}

// Dispatch processes one raw inbound message against a namespace: decode,
// resolve, invoke under isolation, encode the outcome.
//
// For notification requests the invocation still runs, but all output is
// suppressed: Dispatch returns nil bytes ("no message"), even when the
// invocation failed. For call requests every failure path yields a well-formed
// failure envelope; only a codec failure on the inbound message is returned as
// a Go error, since no reply can be addressed to an undecodable request.
func Dispatch(ctx context.Context, cdc codec.Codec, raw []byte, root Namespace, inv Invoker) ([]byte, error) {
	return DispatchHandler(ctx, cdc, raw, NamespaceHandler(root, inv))
}

// DispatchHandler is Dispatch with the resolution/invocation step replaced by
// an arbitrary handler, typically a middleware chain ending in
// NamespaceHandler. The server runtime uses this form.
func DispatchHandler(ctx context.Context, cdc codec.Codec, raw []byte, handler middleware.HandlerFunc) ([]byte, error) {
	seq, err := cdc.Decode(raw)
	if err != nil {
		return nil, err
	}
	req, err := envelope.ParseRequest(seq)
	if err != nil {
		// The request shape is wrong but the message itself decoded, so a
		// reply can still be produced. A malformed kind tag is treated as a
		// call: staying silent would leave a caller blocked forever.
		return cdc.Encode(envelope.FailResponse(err.Error()).Sequence())
	}

	resp := handler(ctx, req)

	if req.Kind == envelope.KindNotification {
		return nil, nil // No message, distinct from an empty message
	}
	return cdc.Encode(resp.Sequence())
}
