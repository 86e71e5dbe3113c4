// Package transport provides the blocking message transports the tango core
// calls through.
//
// A Transport moves one whole encoded envelope at a time. It knows nothing
// about envelope contents; framing, codec selection, and connection lifecycle
// live here, while envelope semantics live in the client and server packages.
package transport

// Transport exposes blocking send/receive of whole messages.
//
// Transmit and Receive follow the call protocol strictly: a call performs one
// Transmit followed by one Receive, a notification performs one Transmit only.
// A Transport is safe for one logical flow at a time; use a Pool to hand each
// flow its own connection.
type Transport interface {
	Transmit(msg []byte) error
	Receive() ([]byte, error)
	Close() error
}
