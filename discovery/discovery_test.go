package discovery

import (
	"context"
	"testing"
	"time"
)

func TestPickerRoundRobin(t *testing.T) {
	p := &Picker{}
	instances := []Instance{{Addr: "a"}, {Addr: "b"}, {Addr: "c"}}

	seen := make(map[string]int)
	for i := 0; i < 9; i++ {
		inst, err := p.Pick(instances)
		if err != nil {
			t.Fatal(err)
		}
		seen[inst.Addr]++
	}
	for _, addr := range []string{"a", "b", "c"} {
		if seen[addr] != 3 {
			t.Fatalf("want even distribution, got %v", seen)
		}
	}
}

func TestPickerNoInstances(t *testing.T) {
	p := &Picker{}
	if _, err := p.Pick(nil); err == nil {
		t.Fatal("want error when no instances are registered")
	}
}

// TestRegisterAndDiscover exercises the etcd path against a local
// etcd instance, matching registry/etcd_registry_test.go's assumption
// of localhost:2379; skipped when one isn't reachable.
func TestRegisterAndDiscover(t *testing.T) {
	reg, err := New([]string{"localhost:2379"})
	if err != nil {
		t.Skipf("etcd client unavailable: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := reg.Register(ctx, "SimpleOps", Instance{Addr: "127.0.0.1:9001"}, 10); err != nil {
		t.Skipf("etcd unreachable: %v", err)
	}
	instances, err := reg.Discover(ctx, "SimpleOps")
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, inst := range instances {
		if inst.Addr == "127.0.0.1:9001" {
			found = true
		}
	}
	if !found {
		t.Fatalf("want registered instance in discovery results, got %v", instances)
	}
	if err := reg.Deregister(ctx, "SimpleOps", "127.0.0.1:9001"); err != nil {
		t.Fatal(err)
	}
}
