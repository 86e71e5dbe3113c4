package test

import (
	"testing"
	"time"

	"tango/client"
	"tango/codec"
	"tango/loadbalance"
	"tango/registry"
)

func setupBench(b *testing.B, addr string) *client.Client {
	reg := NewMockRegistry()
	svr := startServer(b, addr, nil)
	b.Cleanup(func() { svr.Shutdown(3 * time.Second) })

	reg.Register("math", registry.ServiceInstance{Addr: addr}, 10)

	cli := client.NewClient(reg, &loadbalance.RoundRobinBalancer{}, byte(codec.CodecTypeJSON), 8)
	b.Cleanup(func() { cli.Close() })
	return cli
}

// Scenario 1: single goroutine, serial calls.
func BenchmarkSerialCall(b *testing.B) {
	cli := setupBench(b, "127.0.0.1:29190")
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := cli.Call("math.add", 1, 2); err != nil {
			b.Fatal(err)
		}
	}
}

// Scenario 2: concurrent calls over the connection pool.
func BenchmarkConcurrentCall(b *testing.B) {
	cli := setupBench(b, "127.0.0.1:29191")
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := cli.Call("math.add", 1, 2); err != nil {
				b.Error(err)
				return
			}
		}
	})
}

// Scenario 3: JSON envelope encoding/decoding (no network).
func BenchmarkCodecJSON(b *testing.B) {
	cdc := codec.GetCodec(codec.CodecTypeJSON)
	seq := []any{"math.add", 0, 1, 2}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		data, _ := cdc.Encode(seq)
		cdc.Decode(data)
	}
}

// Scenario 4: Msgpack envelope encoding/decoding (no network).
func BenchmarkCodecMsgpack(b *testing.B) {
	cdc := codec.GetCodec(codec.CodecTypeMsgpack)
	seq := []any{"math.add", 0, 1, 2}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		data, _ := cdc.Encode(seq)
		cdc.Decode(data)
	}
}
