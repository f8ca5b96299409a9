package dispatch

import (
	"testing"
	"time"

	"udprpc/envelope"
)

func TestFingerprintCacheHitAndMiss(t *testing.T) {
	c := NewFingerprintCache(time.Minute, 0)
	fp := envelope.NewFingerprint([]byte("req"), "peer:1")

	if _, ok := c.Get(fp); ok {
		t.Fatal("want miss before any Put")
	}
	c.Put(fp, []byte("reply"))
	got, ok := c.Get(fp)
	if !ok || string(got) != "reply" {
		t.Fatalf("want cached reply, got %q ok=%v", got, ok)
	}
}

func TestFingerprintCacheExpires(t *testing.T) {
	c := NewFingerprintCache(10*time.Millisecond, 0)
	fp := envelope.NewFingerprint([]byte("req"), "peer:1")
	c.Put(fp, []byte("reply"))

	time.Sleep(25 * time.Millisecond)
	if _, ok := c.Get(fp); ok {
		t.Fatal("want expired entry to be evicted")
	}
}

func TestFingerprintCacheEvictsLRU(t *testing.T) {
	c := NewFingerprintCache(time.Minute, 2)
	fp1 := envelope.NewFingerprint([]byte("1"), "peer")
	fp2 := envelope.NewFingerprint([]byte("2"), "peer")
	fp3 := envelope.NewFingerprint([]byte("3"), "peer")

	c.Put(fp1, []byte("r1"))
	c.Put(fp2, []byte("r2"))
	c.Get(fp1) // touch fp1 so fp2 becomes the LRU victim
	c.Put(fp3, []byte("r3"))

	if _, ok := c.Get(fp2); ok {
		t.Fatal("want fp2 evicted as least-recently-used")
	}
	if _, ok := c.Get(fp1); !ok {
		t.Fatal("want fp1 retained")
	}
	if _, ok := c.Get(fp3); !ok {
		t.Fatal("want fp3 retained")
	}
}
