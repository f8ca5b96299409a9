package transport

import (
	"math/rand"
	"sync"
)

// dropper draws a uniform integer in [0, n) before every outbound
// datagram and reports true once in n calls, grounded on
// original_source/.../middleware.rs's probability_frac helper used by
// the faulty protocol variants. It is safe for concurrent use since a
// single protocol value may be shared across goroutines serving
// multiple exchanges.
type dropper struct {
	n   uint32
	mu  sync.Mutex
	rnd *rand.Rand
}

func newDropper(n uint32) *dropper {
	if n == 0 {
		n = 1
	}
	return &dropper{n: n, rnd: rand.New(rand.NewSource(rand.Int63()))}
}

func (d *dropper) shouldDrop() bool {
	if d == nil {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rnd.Uint32()%d.n == 0
}
