package client

import (
	"fmt"
	"sync"

	"tango/codec"
	"tango/envelope"
	"tango/loadbalance"
	"tango/registry"
	"tango/transport"
)

// Client is the pooled, registry-aware client. The first segment of a method
// path names the registered namespace; the client discovers its instances,
// picks one through the balancer, borrows a pooled connection to it, and runs
// the core Call/Notify primitives over that connection.
type Client struct {
	registry  registry.Registry    // find service instances
	balancer  loadbalance.Balancer // pick one instance per invocation
	pools     map[string]*transport.Pool
	codecType codec.CodecType
	mu        sync.Mutex
	poolSize  int
}

func NewClient(reg registry.Registry, bal loadbalance.Balancer, codecType byte, poolSize int) *Client {
	return &Client{
		registry:  reg,
		balancer:  bal,
		pools:     make(map[string]*transport.Pool),
		codecType: codec.CodecType(codecType),
		poolSize:  poolSize,
	}
}

// pool returns the connection pool for addr, creating it on first use.
func (c *Client) pool(addr string) *transport.Pool {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pools[addr]
	if !ok {
		p = transport.NewPool(addr, c.poolSize, byte(c.codecType), nil)
		c.pools[addr] = p
	}
	return p
}

// resolve picks a target address for the given method path.
func (c *Client) resolve(method string) (string, error) {
	segments := envelope.Segments(method)
	if len(segments) < 2 {
		return "", fmt.Errorf("client: method %q needs a namespace and a member", method)
	}

	instances, err := c.registry.Discover(segments[0])
	if err != nil {
		return "", err
	}
	instance, err := c.balancer.Pick(instances)
	if err != nil {
		return "", err
	}
	return instance.Addr, nil
}

// Call invokes method on a discovered instance and returns its results.
func (c *Client) Call(method string, args ...any) ([]any, error) {
	addr, err := c.resolve(method)
	if err != nil {
		return nil, err
	}

	pool := c.pool(addr)
	conn, err := pool.Get()
	if err != nil {
		return nil, err
	}
	defer pool.Put(conn)

	results, err := Call(conn, codec.GetCodec(c.codecType), method, args...)
	if err != nil {
		// Server-reported failures leave the connection healthy; anything
		// else means the transport state is unknown.
		if _, ok := err.(*InvocationError); !ok {
			conn.MarkUnusable()
		}
		return nil, err
	}
	return results, nil
}

// Notify sends a one-way message to a discovered instance.
func (c *Client) Notify(method string, args ...any) error {
	addr, err := c.resolve(method)
	if err != nil {
		return err
	}

	pool := c.pool(addr)
	conn, err := pool.Get()
	if err != nil {
		return err
	}
	defer pool.Put(conn)

	if err := Notify(conn, codec.GetCodec(c.codecType), method, args...); err != nil {
		conn.MarkUnusable()
		return err
	}
	return nil
}

// Close shuts down all connection pools.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.pools {
		p.Close()
	}
	c.pools = make(map[string]*transport.Pool)
	return nil
}
