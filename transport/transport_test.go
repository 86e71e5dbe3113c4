package transport

import (
	"bytes"
	"net"
	"testing"
	"time"

	"tango/protocol"
)

// echoPeer reads request frames from conn and writes each body back as a
// response frame, until the connection closes.
func echoPeer(t *testing.T, conn net.Conn) {
	t.Helper()
	for {
		header, body, err := protocol.Decode(conn)
		if err != nil {
			return
		}
		if header.MsgType == protocol.MsgTypeHeartbeat {
			continue
		}
		reply := protocol.Header{
			CodecType: header.CodecType,
			MsgType:   protocol.MsgTypeResponse,
			Seq:       header.Seq,
			BodyLen:   uint32(len(body)),
		}
		if err := protocol.Encode(conn, &reply, body); err != nil {
			return
		}
	}
}

func TestConnTransmitReceive(t *testing.T) {
	clientSide, serverSide := net.Pipe()
	go echoPeer(t, serverSide)

	ct := NewConn(clientSide, protocol.CodecTypeJSON)
	defer ct.Close()

	for _, msg := range []string{"first", "second", "third"} {
		if err := ct.Transmit([]byte(msg)); err != nil {
			t.Fatal(err)
		}
		got, err := ct.Receive()
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got, []byte(msg)) {
			t.Fatalf("expect %q, got %q", msg, got)
		}
	}
}

func TestConnReceiveSkipsHeartbeat(t *testing.T) {
	clientSide, serverSide := net.Pipe()

	go func() {
		// A heartbeat frame arrives before the actual response.
		hb := protocol.Header{CodecType: protocol.CodecTypeJSON, MsgType: protocol.MsgTypeHeartbeat}
		protocol.Encode(serverSide, &hb, nil)
		resp := protocol.Header{
			CodecType: protocol.CodecTypeJSON,
			MsgType:   protocol.MsgTypeResponse,
			Seq:       1,
			BodyLen:   2,
		}
		protocol.Encode(serverSide, &resp, []byte("ok"))
	}()

	ct := NewConn(clientSide, protocol.CodecTypeJSON)
	defer ct.Close()

	got, err := ct.Receive()
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "ok" {
		t.Fatalf("expect ok, got %q", got)
	}
}

func TestConnHeartbeat(t *testing.T) {
	clientSide, serverSide := net.Pipe()

	beats := make(chan protocol.MsgType, 8)
	go func() {
		for {
			header, _, err := protocol.Decode(serverSide)
			if err != nil {
				return
			}
			beats <- header.MsgType
		}
	}()

	ct := NewConn(clientSide, protocol.CodecTypeJSON)
	ct.StartHeartbeat(10 * time.Millisecond)
	defer ct.Close()

	select {
	case mt := <-beats:
		if mt != protocol.MsgTypeHeartbeat {
			t.Fatalf("expect heartbeat frame, got %d", mt)
		}
	case <-time.After(time.Second):
		t.Fatal("no heartbeat frame within 1s")
	}
}

func TestLoopback(t *testing.T) {
	calls := 0
	lb := NewLoopback(func(msg []byte) []byte {
		calls++
		if string(msg) == "silent" {
			return nil // notification: nothing queued
		}
		return append([]byte("re:"), msg...)
	})
	defer lb.Close()

	if err := lb.Transmit([]byte("hello")); err != nil {
		t.Fatal(err)
	}
	got, err := lb.Receive()
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "re:hello" {
		t.Fatalf("expect re:hello, got %q", got)
	}

	if err := lb.Transmit([]byte("silent")); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Fatalf("expect handler called twice, got %d", calls)
	}
	// No reply queued for the silent message.
	select {
	case msg := <-lb.inbox:
		t.Fatalf("unexpected queued reply: %q", msg)
	default:
	}
}

func TestPoolBorrowReturn(t *testing.T) {
	created := 0
	factory := func() (net.Conn, error) {
		created++
		c, s := net.Pipe()
		go func() {
			// Keep the peer end draining so closes don't block.
			buf := make([]byte, 256)
			for {
				if _, err := s.Read(buf); err != nil {
					return
				}
			}
		}()
		return c, nil
	}

	p := NewPool("ignored", 2, protocol.CodecTypeJSON, factory)

	c1, err := p.Get()
	if err != nil {
		t.Fatal(err)
	}
	c2, err := p.Get()
	if err != nil {
		t.Fatal(err)
	}
	if created != 2 {
		t.Fatalf("expect 2 connections created, got %d", created)
	}

	// Returned connections are reused, not recreated.
	p.Put(c1)
	c3, err := p.Get()
	if err != nil {
		t.Fatal(err)
	}
	if c3 != c1 {
		t.Fatal("expect pooled connection to be reused")
	}
	if created != 2 {
		t.Fatalf("expect no new connection, got %d created", created)
	}

	// Unusable connections are discarded and replaced.
	c2.MarkUnusable()
	p.Put(c2)
	c4, err := p.Get()
	if err != nil {
		t.Fatal(err)
	}
	if c4 == c2 {
		t.Fatal("unusable connection must not be recycled")
	}
	if created != 3 {
		t.Fatalf("expect replacement connection, got %d created", created)
	}
}
