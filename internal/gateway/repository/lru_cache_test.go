package repository

import (
	"testing"
	"time"

	"codequest/internal/testutil"
)

func TestLRUCacheEvictsOldest(t *testing.T) {
	c := NewLRUCache[bool](2, 0)
	c.Set("a", true, 0)
	c.Set("b", true, 0)
	_, _ = c.Get("a")
	c.Set("c", true, 0)

	_, ok := c.Get("b")
	testutil.AssertFalse(t, ok, "b should be evicted")
	_, ok = c.Get("a")
	testutil.AssertTrue(t, ok, "a should survive")
	testutil.AssertEqual(t, c.Len(), 2)
}

func TestLRUCacheExpires(t *testing.T) {
	c := NewLRUCache[string](4, time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }
	c.Set("k", "v", 0)

	v, ok := c.Get("k")
	testutil.AssertTrue(t, ok, "expected hit")
	testutil.AssertEqual(t, v, "v")

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("k")
	testutil.AssertFalse(t, ok, "expected expiry")
	testutil.AssertEqual(t, c.Len(), 0)
}
