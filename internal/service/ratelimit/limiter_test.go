package ratelimit

import (
	"testing"
	"time"
)

func TestAllowConsumesCapacity(t *testing.T) {
	l := New()
	for i := 0; i < 3; i++ {
		if !l.Allow("k", 3, 0) {
			t.Fatalf("call %d should be allowed within capacity", i)
		}
	}
	if l.Allow("k", 3, 0) {
		t.Fatalf("fourth call should be rejected")
	}
}

func TestAllowIsolatesKeys(t *testing.T) {
	l := New()
	if !l.Allow("a", 1, 0) {
		t.Fatalf("first token for a")
	}
	if l.Allow("a", 1, 0) {
		t.Fatalf("a exhausted")
	}
	if !l.Allow("b", 1, 0) {
		t.Fatalf("b has its own bucket")
	}
}

func TestAllowRefills(t *testing.T) {
	l := New()
	if !l.Allow("k", 1, 50) {
		t.Fatalf("first token")
	}
	if l.Allow("k", 1, 50) {
		t.Fatalf("bucket drained")
	}
	time.Sleep(60 * time.Millisecond)
	if !l.Allow("k", 1, 50) {
		t.Fatalf("expected refill after sleep")
	}
}
