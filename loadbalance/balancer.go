// Package loadbalance provides load balancing strategies for distributing
// tango calls across multiple namespace instances.
//
// Three strategies are implemented:
//   - RoundRobin:      Stateless handlers, equal-capacity instances
//   - WeightedRandom:  Heterogeneous instances (different CPU/memory)
//   - ConsistentHash:  Method-path affinity (instance-local caches)
package loadbalance

import "tango/registry"

// Balancer is the interface for load balancing strategies.
// The client calls Pick() before each invocation to select a target instance.
type Balancer interface {
	// Pick selects one instance from the available list.
	// Called on every invocation — must be goroutine-safe.
	Pick(instances []registry.ServiceInstance) (*registry.ServiceInstance, error)

	// Name returns the strategy name (for logging/debugging).
	Name() string
}
