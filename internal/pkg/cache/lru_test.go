package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTLCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c, err := NewTTL[int](3, time.Minute)
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		c.Put(fmt.Sprintf("k%d", i), i)
	}

	assert.Equal(t, 3, c.Len())

	_, ok := c.Get("k0")
	assert.False(t, ok, "oldest key should have been evicted")

	for i := 1; i < 4; i++ {
		v, ok := c.Get(fmt.Sprintf("k%d", i))
		require.True(t, ok)
		assert.Equal(t, i, v)
	}
}

func TestTTLCacheGetRefreshesRecency(t *testing.T) {
	c, err := NewTTL[string](2, time.Minute)
	require.NoError(t, err)

	c.Put("a", "1")
	c.Put("b", "2")

	_, ok := c.Get("a")
	require.True(t, ok)

	// "b" is now least recently used and should be evicted.
	c.Put("c", "3")

	_, ok = c.Get("b")
	assert.False(t, ok)
	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestTTLCacheUpdateDoesNotGrow(t *testing.T) {
	c, err := NewTTL[int](2, time.Minute)
	require.NoError(t, err)

	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("a", 10)

	assert.Equal(t, 2, c.Len())

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 10, v)
	_, ok = c.Get("b")
	assert.True(t, ok)
}

func TestTTLCacheExpiredEntryIsAbsentButPresent(t *testing.T) {
	c, err := NewTTL[int](4, 300*time.Millisecond)
	require.NoError(t, err)

	base := time.Now()
	c.now = func() time.Time { return base }

	c.Put("stale", 1)

	c.now = func() time.Time { return base.Add(time.Second) }

	_, ok := c.Get("stale")
	assert.False(t, ok, "expired entry must read as absent")
	assert.True(t, c.Contains("stale"), "expired entry still occupies capacity")
	assert.Equal(t, 1, c.Len())
}

func TestTTLCacheZeroTTLNeverExpires(t *testing.T) {
	c, err := NewTTL[int](2, 0)
	require.NoError(t, err)

	base := time.Now()
	c.now = func() time.Time { return base }
	c.Put("a", 1)
	c.now = func() time.Time { return base.Add(24 * time.Hour) }

	_, ok := c.Get("a")
	assert.True(t, ok)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "pexels:dragon:1", Key("pexels", "dragon", "1"))
}
