package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCacheGetSet(t *testing.T) {
	c := New()

	t.Run("miss on empty cache", func(t *testing.T) {
		_, ok := c.Get("all_tasks")
		assert.False(t, ok)
	})

	t.Run("hit returns identical snapshot", func(t *testing.T) {
		snap := []byte(`[{"id":1,"title":"Ship report"}]`)
		c.Set("all_tasks", snap, time.Minute)

		first, ok := c.Get("all_tasks")
		require.True(t, ok)
		second, ok := c.Get("all_tasks")
		require.True(t, ok)

		assert.Equal(t, snap, first)
		assert.Equal(t, first, second)
	})

	t.Run("stored snapshot is not aliased to caller memory", func(t *testing.T) {
		snap := []byte(`original`)
		c.Set("k", snap, time.Minute)
		snap[0] = 'X'

		got, ok := c.Get("k")
		require.True(t, ok)
		assert.Equal(t, []byte(`original`), got)
	})

	t.Run("returned snapshot cannot mutate the cached entry", func(t *testing.T) {
		c.Set("k2", []byte(`stable`), time.Minute)

		got, ok := c.Get("k2")
		require.True(t, ok)
		got[0] = 'X'

		again, ok := c.Get("k2")
		require.True(t, ok)
		assert.Equal(t, []byte(`stable`), again)
	})
}

func TestReadCacheExpiry(t *testing.T) {
	c := New()
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Set("k", []byte(`v`), 60*time.Second)

	_, ok := c.Get("k")
	require.True(t, ok)

	// Just before the deadline the entry is still served.
	now = now.Add(59 * time.Second)
	_, ok = c.Get("k")
	assert.True(t, ok)

	// Past the deadline the entry is lazily dropped on read.
	now = now.Add(2 * time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestReadCacheDefaultTTL(t *testing.T) {
	c := New()
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Set("k", []byte(`v`), 0)

	now = now.Add(DefaultTTL - time.Second)
	_, ok := c.Get("k")
	assert.True(t, ok)

	now = now.Add(2 * time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestReadCacheEvictAndClear(t *testing.T) {
	c := New()
	c.Set("a", []byte(`1`), time.Minute)
	c.Set("b", []byte(`2`), time.Minute)

	c.Evict("a")
	_, ok := c.Get("a")
	assert.False(t, ok)
	_, ok = c.Get("b")
	assert.True(t, ok)

	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestReadCacheConcurrentAccess(t *testing.T) {
	c := New()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("key_%d", n%4)
			for j := 0; j < 100; j++ {
				c.Set(key, []byte(`snapshot`), time.Minute)
				c.Get(key)
				if j%10 == 0 {
					c.Evict(key)
				}
				if j%50 == 0 {
					c.Clear()
				}
			}
		}(i)
	}
	wg.Wait()
}

func TestKeyPolicy(t *testing.T) {
	var keys KeyPolicy

	t.Run("owner keys are canonical per id", func(t *testing.T) {
		assert.Equal(t, keys.OwnerKey(42, ""), keys.OwnerKey(42, ""))
		assert.NotEqual(t, keys.OwnerKey(42, ""), keys.OwnerKey(43, ""))
		assert.NotEqual(t, keys.AllKey(""), keys.OwnerKey(42, ""))
	})

	t.Run("bust token yields a distinct key and forces bypass", func(t *testing.T) {
		assert.NotEqual(t, keys.AllKey(""), keys.AllKey("tok"))
		assert.NotEqual(t, keys.OwnerKey(1, ""), keys.OwnerKey(1, "tok"))
		assert.NotEqual(t, keys.OwnerKey(1, "tok"), keys.OwnerKey(1, "tok2"))

		assert.False(t, keys.Bypass(""))
		assert.True(t, keys.Bypass("tok"))
	})
}

func TestInvalidatorOnMutation(t *testing.T) {
	c := New()
	inv := NewInvalidator(c)
	var keys KeyPolicy

	c.Set(keys.AllKey(""), []byte(`all`), time.Minute)
	c.Set(keys.OwnerKey(1, ""), []byte(`owner1`), time.Minute)
	c.Set(keys.OwnerKey(2, ""), []byte(`owner2`), time.Minute)

	inv.OnMutation(1)

	_, ok := c.Get(keys.AllKey(""))
	assert.False(t, ok, "all-tasks listing must be evicted")
	_, ok = c.Get(keys.OwnerKey(1, ""))
	assert.False(t, ok, "affected owner's listing must be evicted")

	// An unrelated owner's cached listing stays valid.
	snap, ok := c.Get(keys.OwnerKey(2, ""))
	require.True(t, ok)
	assert.Equal(t, []byte(`owner2`), snap)
}

func TestInvalidatorClearAll(t *testing.T) {
	c := New()
	inv := NewInvalidator(c)

	c.Set("a", []byte(`1`), time.Minute)
	c.Set("b", []byte(`2`), time.Minute)

	inv.ClearAll()
	assert.Equal(t, 0, c.Len())
}
