// Package discovery registers a Dispatcher's bind address in etcd and
// lets an rpcclient-side caller discover and pick one, adapted from the
// teacher's registry + loadbalance packages (domain-stack addition,
// SPEC_FULL.md §2 — spec.md's Context Manager talks to one fixed
// target_address; this sits above it for the case where that address
// isn't known in advance).
package discovery

// Instance describes one registered dispatcher. Trimmed from the
// teacher's registry.ServiceInstance: Weight/Version served the
// teacher's weighted/consistent-hash balancers, which this package
// doesn't need since exactly one dispatcher answers any given Invoke —
// picking among several is a simple round robin over interchangeable
// replicas, not capacity-aware balancing.
type Instance struct {
	Addr string
}
