package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	c, err := NewLRU[string, int](2, 0)
	require.NoError(t, err)

	c.Put("a", 1)
	c.Put("b", 2)
	_, _ = c.Get("a")
	c.Put("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 2, c.Len())
}

func TestLRU_TTL(t *testing.T) {
	now := time.Unix(100, 0)
	c, err := NewLRU[string, string](4, time.Minute)
	require.NoError(t, err)
	c.SetClock(func() time.Time { return now })

	c.Put("k", "v")
	now = now.Add(59 * time.Second)
	_, ok := c.Get("k")
	assert.True(t, ok)

	now = now.Add(time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestLRU_Delete(t *testing.T) {
	c, err := NewLRU[int, int](1, 0)
	require.NoError(t, err)

	c.Put(1, 1)
	assert.True(t, c.Delete(1))
	assert.False(t, c.Delete(1))
}

func TestNewLRU_RejectsZeroCapacity(t *testing.T) {
	_, err := NewLRU[int, int](0, 0)
	assert.Error(t, err)
}
