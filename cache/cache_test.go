package cache

import "testing"

func TestKeyPacking(t *testing.T) {
	k := Key(5, 1, 9)
	want := uint32(5)<<16 | uint32(1)<<8 | 9
	if k != want {
		t.Errorf("Key(5,1,9) = %#x, want %#x", k, want)
	}
}

func TestSetGetEvictsLRU(t *testing.T) {
	c := New(2)
	var a, b, d [512]byte
	a[0], b[0], d[0] = 1, 2, 3

	c.Set(Key(0, 0, 1), a)
	c.Set(Key(0, 0, 2), b)
	if c.Count() != 2 {
		t.Fatalf("count = %d, want 2", c.Count())
	}

	// Touch the first key so the second becomes least-recently used.
	if _, ok := c.Get(Key(0, 0, 1)); !ok {
		t.Fatalf("expected hit on key 1")
	}

	c.Set(Key(0, 0, 3), d)
	if c.Count() != 2 {
		t.Fatalf("count after eviction = %d, want 2", c.Count())
	}
	if _, ok := c.Get(Key(0, 0, 2)); ok {
		t.Errorf("key 2 should have been evicted")
	}
	if _, ok := c.Get(Key(0, 0, 1)); !ok {
		t.Errorf("key 1 should still be cached")
	}
	if _, ok := c.Get(Key(0, 0, 3)); !ok {
		t.Errorf("key 3 should be cached")
	}
}

func TestGetOrCreateRejectsRecursion(t *testing.T) {
	c := New(4)
	key := Key(0, 0, 1)

	var fetch FetchFunc
	fetch = func(k uint32) ([512]byte, error) {
		return c.GetOrCreate(key, fetch)
	}
	if _, err := c.GetOrCreate(key, fetch); err == nil {
		t.Fatalf("expected recursive fetch to be rejected")
	}
}

func TestClearEmptiesCache(t *testing.T) {
	c := New(4)
	c.Set(Key(0, 0, 1), [512]byte{})
	c.Clear()
	if c.Count() != 0 {
		t.Errorf("count after clear = %d, want 0", c.Count())
	}
	if _, ok := c.Get(Key(0, 0, 1)); ok {
		t.Errorf("expected miss after clear")
	}
}
