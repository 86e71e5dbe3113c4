package registry

// ServiceInstance is one addressable server exposing a tango namespace.
type ServiceInstance struct {
	Addr    string
	Weight  int // Weight for load balancing
	Version string
}

// Registry maps exposed namespace names to the instances serving them.
type Registry interface {
	Register(namespace string, instance ServiceInstance, ttl int64) error
	Deregister(namespace string, addr string) error
	Discover(namespace string) ([]ServiceInstance, error)
	Watch(namespace string) <-chan []ServiceInstance
}
