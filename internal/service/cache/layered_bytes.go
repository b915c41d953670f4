package cache

import "time"

// LayeredBytes puts an in-process TTL cache in front of a second BytesCache
// (typically Redis). Reads fall through L1 to L2 and backfill; writes go to
// both.
type LayeredBytes struct {
	l1    *TTLCache
	l2    BytesCache
	l1TTL time.Duration
}

func NewLayeredBytes(l2 BytesCache, l1TTL time.Duration) *LayeredBytes {
	if l1TTL <= 0 {
		l1TTL = 5 * time.Second
	}
	return &LayeredBytes{l1: NewTTLCache(), l2: l2, l1TTL: l1TTL}
}

func (c *LayeredBytes) GetBytes(key string) ([]byte, bool, error) {
	if b, ok, _ := c.l1.GetBytes(key); ok {
		return b, true, nil
	}
	if c.l2 == nil {
		return nil, false, nil
	}
	b, ok, err := c.l2.GetBytes(key)
	if err != nil || !ok {
		return nil, ok, err
	}
	_ = c.l1.SetBytes(key, b, c.l1TTL)
	return b, true, nil
}

func (c *LayeredBytes) SetBytes(key string, value []byte, ttl time.Duration) error {
	l1TTL := ttl
	if l1TTL <= 0 || l1TTL > c.l1TTL {
		l1TTL = c.l1TTL
	}
	_ = c.l1.SetBytes(key, value, l1TTL)
	if c.l2 == nil {
		return nil
	}
	return c.l2.SetBytes(key, value, ttl)
}

var _ BytesCache = (*LayeredBytes)(nil)
