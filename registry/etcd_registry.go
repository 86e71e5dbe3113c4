// Package registry provides service discovery for tango namespaces.
//
// The etcd implementation uses etcd as a "distributed phonebook":
//
//	Key:   /tango/{Namespace}/{Addr}
//	Value: JSON-encoded ServiceInstance
//
// Registration uses TTL-based leases: if the server crashes, the lease
// expires and the entry is automatically removed — preventing "ghost"
// instances.
package registry

import (
	"context"
	"encoding/json"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// EtcdRegistry implements the Registry interface using etcd v3.
type EtcdRegistry struct {
	client *clientv3.Client // etcd client connection (thread-safe, shared across goroutines)
}

// NewEtcdRegistry creates a new registry connected to the given etcd
// endpoints.
func NewEtcdRegistry(endpoints []string) (*EtcdRegistry, error) {
	c, err := clientv3.New(clientv3.Config{
		Endpoints: endpoints,
	})
	if err != nil {
		return nil, err
	}
	return &EtcdRegistry{client: c}, nil
}

// Register adds a namespace instance to etcd with a TTL lease.
//
// Flow:
//  1. Create a lease with the given TTL (e.g., 10 seconds)
//  2. Put the key-value pair with the lease attached
//  3. Start KeepAlive to automatically renew the lease
//
// The lease ID stays a local variable, not a struct field, so multiple
// servers can share one EtcdRegistry without racing on it.
func (r *EtcdRegistry) Register(namespace string, instance ServiceInstance, ttl int64) error {
	ctx := context.TODO()

	// Create a TTL-based lease — if KeepAlive stops, the entry auto-expires
	lease, err := r.client.Grant(ctx, ttl)
	if err != nil {
		return err
	}

	// Serialize the instance metadata
	val, err := json.Marshal(instance)
	if err != nil {
		return err
	}

	// Store in etcd: key = /tango/{namespace}/{addr}, value = JSON metadata
	_, err = r.client.Put(ctx, "/tango/"+namespace+"/"+instance.Addr, string(val), clientv3.WithLease(lease.ID))
	if err != nil {
		return err
	}

	// Start background lease renewal — KeepAlive sends heartbeats to etcd
	ch, err := r.client.KeepAlive(ctx, lease.ID)
	if err != nil {
		return err
	}

	// Consume KeepAlive responses to prevent the channel from filling up
	go func() {
		for range ch {
		}
	}()
	return nil
}

// Deregister removes a namespace instance from etcd.
// Called during graceful shutdown before closing the listener.
func (r *EtcdRegistry) Deregister(namespace string, addr string) error {
	ctx := context.TODO()
	_, err := r.client.Delete(ctx, "/tango/"+namespace+"/"+addr)
	return err
}

// Watch monitors a namespace prefix in etcd and emits updated instance lists
// whenever changes occur (new registrations, deregistrations, lease
// expirations).
func (r *EtcdRegistry) Watch(namespace string) <-chan []ServiceInstance {
	ctx := context.TODO()
	ch := make(chan []ServiceInstance, 1)
	prefix := "/tango/" + namespace + "/"

	go func() {
		// Watch all keys under the namespace prefix
		watchChan := r.client.Watch(ctx, prefix, clientv3.WithPrefix())
		for range watchChan {
			// On any change, re-fetch the full instance list
			// (simpler than parsing individual watch events)
			instances, _ := r.Discover(namespace)
			ch <- instances
		}
	}()

	return ch
}

// Discover returns all currently registered instances for a namespace.
// Queries etcd with a key prefix to find all instances under
// /tango/{namespace}/.
func (r *EtcdRegistry) Discover(namespace string) ([]ServiceInstance, error) {
	ctx := context.TODO()
	prefix := "/tango/" + namespace + "/"

	resp, err := r.client.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, err
	}

	instances := make([]ServiceInstance, 0)
	for _, kv := range resp.Kvs {
		var instance ServiceInstance
		if err := json.Unmarshal(kv.Value, &instance); err != nil {
			continue // Skip malformed entries
		}
		instances = append(instances, instance)
	}

	return instances, nil
}
