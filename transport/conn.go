package transport

import (
	"sync"
	"time"

	"tango/protocol"
)

// Conn is a Transport over a net-style connection using the tango frame
// protocol.
//
// Writes are serialized by a mutex so heartbeat frames and request frames
// never interleave. Reads are sequential by contract: tango calls are strictly
// transmit-then-receive on a single logical flow, so no multiplexing or
// sequence matching is needed — the next non-heartbeat frame is the response.
type Conn struct {
	conn      RWCloser
	codecType byte
	seq       uint32 // Monotonically increasing frame sequence (under writeMu)
	writeMu   sync.Mutex
	closeOnce sync.Once
	done      chan struct{} // Closed on Close, stops the heartbeat loop
	unusable  bool          // Marked by the caller after a transport error
}

// RWCloser is the part of net.Conn the frame protocol needs. Kept as an
// interface so tests can run a Conn over net.Pipe or an in-memory buffer.
type RWCloser interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// NewConn wraps conn. No background goroutines are started; call
// StartHeartbeat if the peer expects keepalive probes.
func NewConn(conn RWCloser, codecType byte) *Conn {
	return &Conn{
		conn:      conn,
		codecType: codecType,
		done:      make(chan struct{}),
	}
}

// Transmit writes one request frame carrying msg.
func (t *Conn) Transmit(msg []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	t.seq++
	header := protocol.Header{
		CodecType: t.codecType,
		MsgType:   protocol.MsgTypeRequest,
		Seq:       t.seq,
		BodyLen:   uint32(len(msg)),
	}
	return protocol.Encode(t.conn, &header, msg)
}

// Receive blocks until the next response frame arrives and returns its body.
// Heartbeat frames are skipped.
func (t *Conn) Receive() ([]byte, error) {
	for {
		header, body, err := protocol.Decode(t.conn)
		if err != nil {
			return nil, err
		}
		if header.MsgType == protocol.MsgTypeHeartbeat {
			continue
		}
		return body, nil
	}
}

// StartHeartbeat launches a background goroutine sending heartbeat frames at
// the given interval until Close is called or a write fails. Heartbeats keep
// idle pooled connections from being dropped by the server or intermediaries.
func (t *Conn) StartHeartbeat(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-t.done:
				return
			case <-ticker.C:
				header := &protocol.Header{
					CodecType: t.codecType,
					MsgType:   protocol.MsgTypeHeartbeat,
					BodyLen:   0,
				}
				// Heartbeat writes also need the write lock to avoid frame
				// interleaving with in-flight requests.
				t.writeMu.Lock()
				err := protocol.Encode(t.conn, header, nil)
				t.writeMu.Unlock()
				if err != nil {
					return
				}
			}
		}
	}()
}

// MarkUnusable flags the connection so the pool discards it instead of
// recycling it.
func (t *Conn) MarkUnusable() {
	t.unusable = true
}

// Close stops the heartbeat loop and closes the underlying connection.
func (t *Conn) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.done)
		err = t.conn.Close()
	})
	return err
}

// CodecType returns the codec byte stamped on outgoing frames.
func (t *Conn) CodecType() byte {
	return t.codecType
}
