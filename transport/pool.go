// Package transport also provides a borrow/return pool of framed connections
// (Pool).
//
// tango calls hold a connection exclusively between Transmit and Receive, so
// the pooled model fits: each in-flight call borrows one connection and
// returns it when the response arrives.
//
// Pool design: uses a buffered channel as a natural FIFO queue.
// Buffered channels are concurrency-safe, and blocking on empty is built-in.
package transport

import (
	"fmt"
	"net"
	"sync"
)

// Pool manages reusable framed connections to a single address.
type Pool struct {
	mu        sync.Mutex
	conns     chan *Conn               // Buffered channel as pool — FIFO, goroutine-safe
	addr      string                   // Target address
	maxConns  int                      // Maximum number of connections
	curConns  int                      // Currently created connections (may be < maxConns)
	codecType byte                     // Codec byte stamped on every frame
	factory   func() (net.Conn, error) // Connection factory function
}

// NewPool creates a connection pool with the given max size.
// Connections are created lazily — the pool starts empty and grows on demand.
func NewPool(addr string, maxConns int, codecType byte, factory func() (net.Conn, error)) *Pool {
	if factory == nil {
		factory = func() (net.Conn, error) { return net.Dial("tcp", addr) }
	}
	return &Pool{
		conns:     make(chan *Conn, maxConns),
		addr:      addr,
		maxConns:  maxConns,
		codecType: codecType,
		factory:   factory,
	}
}

// Get retrieves a connection from the pool.
// Strategy:
//  1. Try to get an existing connection from the channel (non-blocking select)
//  2. If pool is empty but under limit, create a new connection
//  3. If pool is empty and at limit, block until one is returned
func (p *Pool) Get() (*Conn, error) {
	select {
	case conn := <-p.conns:
		if conn.unusable {
			conn.Close()
			p.mu.Lock()
			p.curConns--
			p.mu.Unlock()
			return p.createNew()
		}
		return conn, nil
	default:
		// Pool is empty
		p.mu.Lock()
		under := p.curConns < p.maxConns
		p.mu.Unlock()
		if under {
			return p.createNew()
		}
		// At capacity — block until a connection is returned
		conn := <-p.conns
		return conn, nil
	}
}

// Put returns a connection to the pool.
// If the connection is marked unusable (error occurred), it's closed and
// discarded.
func (p *Pool) Put(conn *Conn) {
	if conn.unusable {
		conn.Close()
		p.mu.Lock()
		p.curConns--
		p.mu.Unlock()
		return
	}
	p.conns <- conn
}

// Close shuts down the pool and closes all idle connections.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	close(p.conns)
	for conn := range p.conns {
		conn.Close()
		p.curConns--
	}
	return nil
}

// createNew creates a new framed connection via the factory function.
// Protected by mutex to prevent exceeding maxConns under concurrent access.
func (p *Pool) createNew() (*Conn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.curConns >= p.maxConns {
		return nil, fmt.Errorf("connection pool exhausted")
	}

	netConn, err := p.factory()
	if err != nil {
		return nil, err
	}

	p.curConns++
	return NewConn(netConn, p.codecType), nil
}
