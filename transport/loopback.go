package transport

import (
	"errors"
	"sync"
)

// Loopback is an in-process Transport that hands each transmitted message to
// a handler function and queues the handler's reply for Receive. A nil reply
// from the handler queues nothing — that is how notification silence shows up
// at the transport level.
//
// Wire a Loopback to server.Dispatch to run a full client/server exchange
// without a network.
type Loopback struct {
	handle func(msg []byte) []byte
	inbox  chan []byte
	once   sync.Once
	done   chan struct{}
}

// NewLoopback creates a loopback transport driven by handle.
func NewLoopback(handle func(msg []byte) []byte) *Loopback {
	return &Loopback{
		handle: handle,
		inbox:  make(chan []byte, 16),
		done:   make(chan struct{}),
	}
}

func (l *Loopback) Transmit(msg []byte) error {
	select {
	case <-l.done:
		return errors.New("transport: loopback closed")
	default:
	}
	if reply := l.handle(msg); reply != nil {
		l.inbox <- reply
	}
	return nil
}

func (l *Loopback) Receive() ([]byte, error) {
	select {
	case <-l.done:
		return nil, errors.New("transport: loopback closed")
	case reply := <-l.inbox:
		return reply, nil
	}
}

func (l *Loopback) Close() error {
	l.once.Do(func() { close(l.done) })
	return nil
}
