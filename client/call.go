// Package client implements the tango client side: the Call and Notify
// invocation primitives and a pooled, registry-aware Client on top of them.
package client

import (
	"net"

	"tango/codec"
	"tango/envelope"
	"tango/transport"
)

// InvocationError is raised when the server reports a failure envelope. The
// server collapses path-resolution failures, non-callable members, and handler
// failures into one description string; the client re-raises that string as
// if the failure occurred locally.
type InvocationError struct {
	Message string
}

func (e *InvocationError) Error() string {
	return e.Message
}

// Strategy is one of the two invocation primitives, selected when a proxy is
// built: Call for request/response, NotifyStrategy for one-way messages.
type Strategy func(t transport.Transport, cdc codec.Codec, method string, args ...any) ([]any, error)

// Call performs one remote invocation: build a call envelope, encode,
// transmit, block on receive, decode, unwrap.
//
// On a success envelope the trailing elements are returned as-is (a call with
// no return values yields an empty slice, not a nil placeholder). On a failure
// envelope the error is an *InvocationError carrying the server's description.
// Exactly one transmit and one receive happen per invocation; retries and
// timeouts are the transport's concern.
func Call(t transport.Transport, cdc codec.Codec, method string, args ...any) ([]any, error) {
	req, err := envelope.NewRequest(method, envelope.KindCall, args)
	if err != nil {
		return nil, err
	}
	data, err := cdc.Encode(req.Sequence())
	if err != nil {
		return nil, err
	}
	if err := t.Transmit(data); err != nil {
		return nil, err
	}

	raw, err := t.Receive()
	if err != nil {
		return nil, err
	}
	seq, err := cdc.Decode(raw)
	if err != nil {
		return nil, err
	}
	resp, err := envelope.ParseResponse(seq)
	if err != nil {
		return nil, err
	}
	if !resp.OK {
		return nil, &InvocationError{Message: resp.Err}
	}
	return resp.Results, nil
}

// Notify performs one one-way invocation: same envelope construction as Call
// but with the notification kind, one transmit, no receive. The remote side
// never answers, so only encoding and transport failures can surface.
func Notify(t transport.Transport, cdc codec.Codec, method string, args ...any) error {
	req, err := envelope.NewRequest(method, envelope.KindNotification, args)
	if err != nil {
		return err
	}
	data, err := cdc.Encode(req.Sequence())
	if err != nil {
		return err
	}
	return t.Transmit(data)
}

// NotifyStrategy adapts Notify to the Strategy signature for proxies bound to
// one-way delivery.
func NotifyStrategy(t transport.Transport, cdc codec.Codec, method string, args ...any) ([]any, error) {
	return nil, Notify(t, cdc, method, args...)
}

// Dial connects to a tango server and wraps the connection in a framed
// transport using the given codec.
func Dial(network, address string, codecType codec.CodecType) (*transport.Conn, error) {
	conn, err := net.Dial(network, address)
	if err != nil {
		return nil, err
	}
	return transport.NewConn(conn, byte(codecType)), nil
}
