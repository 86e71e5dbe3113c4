package server

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"tango/codec"
	"tango/envelope"
	"tango/middleware"
	"tango/protocol"
	"tango/registry"
)

// Server is the tango TCP server: it owns the exposed namespace and handles
// incoming framed requests.
//
// Request processing pipeline:
//
//	Accept conn → handleConn (single goroutine reads frames)
//	  → for each request: go handleRequest (parallel processing)
//	    → Codec.Decode → Middleware Chain → NamespaceHandler → Codec.Encode → write response
//
// Notification requests run the same pipeline but never produce a response
// frame.
type Server struct {
	root          Namespace               // Exposed namespace, e.g. "math" → Namespace{"add": Func(...)}
	listener      net.Listener            // TCP listener
	wg            sync.WaitGroup          // Tracks in-flight requests for graceful shutdown
	shutdown      atomic.Bool             // Set during shutdown to suppress Accept errors
	middlewares   []middleware.Middleware // Registered middlewares (applied in order)
	handler       middleware.HandlerFunc  // middleware(middleware(...(NamespaceHandler)))
	invoker       Invoker                 // Protected-invoke port, SafeInvoke by default
	registry      registry.Registry       // Service registry (etcd), nil if not using discovery
	advertiseAddr string                  // Address registered in etcd (e.g., "127.0.0.1:7625")
	log           *zap.Logger
}

// NewServer creates a server with an empty namespace, the SafeInvoke
// protected-invoke port, and a no-op logger.
func NewServer() *Server {
	return &Server{
		root:    Namespace{},
		invoker: SafeInvoke,
		log:     zap.NewNop(),
	}
}

// SetLogger replaces the server's logger.
func (svr *Server) SetLogger(log *zap.Logger) {
	svr.log = log
}

// SetInvoker replaces the protected-invoke port. The replacement must honor
// the protected-call contract: never let an invocation failure escape.
func (svr *Server) SetInvoker(inv Invoker) {
	svr.invoker = inv
}

// Use registers a middleware. Middlewares are applied in the order they are
// added.
func (svr *Server) Use(mw middleware.Middleware) {
	svr.middlewares = append(svr.middlewares, mw)
}

// Expose mounts a member (a sub-namespace or a Func) at a root segment.
func (svr *Server) Expose(name string, member any) error {
	if len(envelope.Segments(name)) != 1 || !envelope.ValidMethod(name) {
		return fmt.Errorf("server: invalid namespace segment %q", name)
	}
	if _, ok := asNamespace(member); !ok {
		if _, ok := asFunc(member); !ok {
			return fmt.Errorf("server: member for %q must be a Namespace or a Func, got %T", name, member)
		}
	}
	svr.root[name] = member
	return nil
}

// Handle mounts fn at a dotted path, creating intermediate namespaces as
// needed. Mounting below an existing callable is an error.
func (svr *Server) Handle(path string, fn Func) error {
	if !envelope.ValidMethod(path) {
		return fmt.Errorf("server: invalid method path %q", path)
	}
	segments := envelope.Segments(path)
	current := svr.root
	for _, segment := range segments[:len(segments)-1] {
		member, ok := current[segment]
		if !ok {
			sub := Namespace{}
			current[segment] = sub
			current = sub
			continue
		}
		sub, ok := asNamespace(member)
		if !ok {
			return fmt.Errorf("server: %q is already a function, cannot mount %q below it", segment, path)
		}
		current = sub
	}
	current[segments[len(segments)-1]] = fn
	return nil
}

// Root returns the exposed namespace.
func (svr *Server) Root() Namespace {
	return svr.root
}

// Serve starts the server: listens on the given address, optionally registers
// the exposed top-level namespaces with the registry, and enters the Accept
// loop.
//
// Parameters:
//   - advertiseAddr: the address to register in etcd (e.g., "127.0.0.1:7625").
//     This differs from the listen address because ":7625" resolves to
//     "[::]:7625" locally.
//   - reg: the registry implementation. Pass nil to skip service discovery.
func (svr *Server) Serve(network, address string, advertiseAddr string, reg registry.Registry) error {
	listener, err := net.Listen(network, address)
	if err != nil {
		return err
	}
	svr.listener = listener

	// Build the middleware chain once at startup (not per-request).
	svr.handler = middleware.Chain(svr.middlewares...)(NamespaceHandler(svr.root, svr.invoker))

	// Register each exposed top-level namespace (if a registry is provided).
	svr.advertiseAddr = advertiseAddr
	if reg != nil {
		svr.registry = reg
		for name := range svr.root {
			if err := svr.registry.Register(name, registry.ServiceInstance{
				Addr: advertiseAddr,
			}, 10); err != nil { // TTL = 10 seconds, KeepAlive renews automatically
				svr.log.Warn("registry registration failed",
					zap.String("namespace", name), zap.Error(err))
			}
		}
	}

	// Accept loop: one goroutine per connection
	for {
		conn, err := listener.Accept()
		if err != nil {
			// During shutdown, listener.Close() causes Accept to return an
			// error. Check the shutdown flag to distinguish intentional close
			// from real errors.
			if svr.shutdown.Load() {
				return nil
			}
			return err
		}
		go svr.handleConn(conn)
	}
}

// handleConn processes a single TCP connection.
// It runs a read loop in a single goroutine (reads must be sequential to
// parse frame boundaries), but dispatches each request to its own goroutine
// for parallel processing.
//
// A per-connection write mutex (writeMu) is shared among all request
// goroutines on this connection, preventing frame interleaving when multiple
// goroutines write responses concurrently.
func (svr *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	writeMu := &sync.Mutex{}
	for {
		header, body, err := protocol.Decode(conn)
		if err != nil {
			return // Connection closed or protocol error
		}

		// Heartbeat frames exist only to keep the connection alive.
		if header.MsgType == protocol.MsgTypeHeartbeat {
			continue
		}

		go svr.handleRequest(header, body, conn, writeMu)
	}
}

// handleRequest processes a single request: decode → middleware chain →
// namespace dispatch → encode → write. Notification requests stop after the
// dispatch step: whatever response was computed is discarded.
func (svr *Server) handleRequest(header *protocol.Header, body []byte, conn net.Conn, writeMu *sync.Mutex) {
	svr.wg.Add(1)
	defer svr.wg.Done()

	cdc := codec.GetCodec(codec.CodecType(header.CodecType))
	seq, err := cdc.Decode(body)
	if err != nil {
		svr.log.Warn("undecodable request body", zap.Error(err))
		return
	}

	var resp *envelope.Response
	req, err := envelope.ParseRequest(seq)
	if err != nil {
		// Malformed request shape: reply with a failure envelope so the
		// caller is not left blocking. The kind is unknown, treat as a call.
		resp = envelope.FailResponse(err.Error())
	} else {
		resp = svr.handler(context.Background(), req)
		if req.Kind == envelope.KindNotification {
			return // No response frame, even on failure
		}
	}

	writeMu.Lock()
	defer writeMu.Unlock()

	out, err := cdc.Encode(resp.Sequence())
	if err != nil {
		svr.log.Error("failed to encode response", zap.Error(err))
		return
	}

	// Echo the request Seq so the client can match frames if it wants to.
	replyHeader := protocol.Header{
		CodecType: header.CodecType,
		MsgType:   protocol.MsgTypeResponse,
		Seq:       header.Seq,
		BodyLen:   uint32(len(out)),
	}
	if err := protocol.Encode(conn, &replyHeader, out); err != nil {
		svr.log.Error("failed to write response frame", zap.Error(err))
	}
}

// Shutdown performs graceful shutdown:
//  1. Deregister all namespaces from the registry (clients stop routing here)
//  2. Set the shutdown flag (so the Accept error is recognized as intentional)
//  3. Close the listener (stop accepting new connections)
//  4. Wait for in-flight requests to finish (with timeout)
func (svr *Server) Shutdown(timeout time.Duration) error {
	// Deregister FIRST — so clients stop sending new requests.
	if svr.registry != nil {
		for name := range svr.root {
			svr.registry.Deregister(name, svr.advertiseAddr)
		}
	}

	// Set the flag BEFORE closing the listener. If we close first, the
	// Accept error fires before the flag is set, and Serve() would return a
	// real error instead of nil.
	svr.shutdown.Store(true)
	if svr.listener != nil {
		svr.listener.Close()
	}

	done := make(chan struct{})
	go func() {
		svr.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil // All requests completed
	case <-time.After(timeout):
		return fmt.Errorf("timeout waiting for ongoing requests to finish")
	}
}
