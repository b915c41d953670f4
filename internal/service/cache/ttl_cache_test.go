package cache

import (
	"testing"
	"time"
)

func TestTTLCacheSetGetDelete(t *testing.T) {
	c := NewTTLCache()
	c.Set("k", 42, time.Minute)

	v, ok := c.Get("k")
	if !ok || v.(int) != 42 {
		t.Fatalf("got %v ok=%v", v, ok)
	}

	c.Delete("k")
	if _, ok := c.Get("k"); ok {
		t.Fatalf("expected miss after delete")
	}
}

func TestTTLCacheExpiry(t *testing.T) {
	c := NewTTLCache()
	c.Set("k", "v", 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Fatalf("expected miss after expiry")
	}
}

func TestTTLCacheZeroTTLNeverExpires(t *testing.T) {
	c := NewTTLCache()
	c.Set("k", "v", 0)
	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get("k"); !ok {
		t.Fatalf("zero ttl entry must persist")
	}
}

func TestLayeredBytesBackfillsL1(t *testing.T) {
	l2 := NewTTLCache()
	if err := l2.SetBytes("k", []byte("payload"), time.Minute); err != nil {
		t.Fatalf("seed l2: %v", err)
	}
	layered := NewLayeredBytes(l2, time.Minute)

	b, ok, err := layered.GetBytes("k")
	if err != nil || !ok || string(b) != "payload" {
		t.Fatalf("get = %q ok=%v err=%v", b, ok, err)
	}

	// remove from L2; L1 backfill must still serve it
	l2.Delete("k")
	b, ok, err = layered.GetBytes("k")
	if err != nil || !ok || string(b) != "payload" {
		t.Fatalf("after l2 delete = %q ok=%v err=%v", b, ok, err)
	}
}

func TestLayeredBytesWriteThrough(t *testing.T) {
	l2 := NewTTLCache()
	layered := NewLayeredBytes(l2, time.Minute)

	if err := layered.SetBytes("k", []byte("x"), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, ok, _ := l2.GetBytes("k"); !ok {
		t.Fatalf("write must reach l2")
	}
}
