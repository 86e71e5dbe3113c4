// Package proxy lets a caller build an arbitrary-depth dotted method name
// through repeated child access and invoke it as if it were a local function,
// without pre-declaring the remote namespace:
//
//	root := proxy.New(t, cdc, client.Call)
//	results, err := root.Child("math").Child("add").Invoke(2, 3)
//
// Each node represents one accumulated path prefix bound to a transport and
// an invocation strategy. Children are created lazily and memoized, so the
// same segment accessed twice on the same parent yields the identical node.
package proxy

import (
	"errors"
	"sync"

	"tango/client"
	"tango/codec"
	"tango/transport"
)

// ErrNoMethod is returned when the root node is invoked directly: with an
// empty path there is no method to name.
var ErrNoMethod = errors.New("tango proxy: no method selected")

// Node is one accumulated path prefix. The root node (from New) has an empty
// path; every Child call extends it by one segment. All bookkeeping is
// unexported, so any segment name — including ones that collide with the
// node's own mechanics — resolves to a remote-path child.
type Node struct {
	t        transport.Transport
	cdc      codec.Codec
	strategy client.Strategy
	path     string

	mu       sync.Mutex
	children map[string]*Node
}

// New creates the root node for one transport/strategy pairing.
// Pass client.Call for request/response proxies or client.NotifyStrategy for
// one-way proxies.
func New(t transport.Transport, cdc codec.Codec, strategy client.Strategy) *Node {
	return &Node{t: t, cdc: cdc, strategy: strategy}
}

// Child returns the node for path + "." + name (or just name at the root).
// The child is created once and cached; subsequent calls with the same name
// return the same node. Insertion is mutex-guarded, so proxies may be shared
// across goroutines whenever the underlying transport allows it.
func (n *Node) Child(name string) *Node {
	n.mu.Lock()
	defer n.mu.Unlock()

	if child, ok := n.children[name]; ok {
		return child
	}

	path := name
	if n.path != "" {
		path = n.path + "." + name
	}
	child := &Node{
		t:        n.t,
		cdc:      n.cdc,
		strategy: n.strategy,
		path:     path,
	}
	if n.children == nil {
		n.children = make(map[string]*Node)
	}
	n.children[name] = child
	return child
}

// Walk descends through several segments at once: Walk("a", "b", "c") is
// Child("a").Child("b").Child("c").
func (n *Node) Walk(names ...string) *Node {
	node := n
	for _, name := range names {
		node = node.Child(name)
	}
	return node
}

// Invoke runs the bound strategy with the accumulated path. For call proxies
// it blocks for the response; for notify proxies it returns after transmit
// with nil results.
func (n *Node) Invoke(args ...any) ([]any, error) {
	if n.path == "" {
		return nil, ErrNoMethod
	}
	return n.strategy(n.t, n.cdc, n.path, args...)
}

// Path returns the accumulated dotted path; empty for the root.
func (n *Node) Path() string {
	return n.path
}
