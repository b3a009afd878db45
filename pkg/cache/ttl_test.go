package cache

import (
	"testing"
	"time"

	"github.com/jzx17/crmclient/internal/testutils"
	"github.com/stretchr/testify/assert"
)

func TestTTL_GetSet(t *testing.T) {
	mock := testutils.NewMockClock(t)
	c := NewTTL[string, int](time.Hour, testutils.NewClockWrapper(mock))

	_, ok := c.Get("loc-1")
	assert.False(t, ok)

	c.Set("loc-1", 42)
	v, ok := c.Get("loc-1")
	assert.True(t, ok)
	assert.Equal(t, 42, v)
	assert.Equal(t, time.Hour, c.TTL())
}

func TestTTL_Expiry(t *testing.T) {
	mock := testutils.NewMockClock(t)
	c := NewTTL[string, string](time.Hour, testutils.NewClockWrapper(mock))
	c.Set("loc-1", "pipelines")

	mock.Advance(time.Hour - time.Millisecond)
	_, ok := c.Get("loc-1")
	assert.True(t, ok, "entry should be valid just before the TTL")

	mock.Advance(time.Millisecond)
	_, ok = c.Get("loc-1")
	assert.False(t, ok, "entry should expire exactly at the TTL")

	// expired entries are not swept
	assert.Equal(t, 1, c.Len())

	c.Set("loc-1", "refetched")
	v, ok := c.Get("loc-1")
	assert.True(t, ok)
	assert.Equal(t, "refetched", v)
}

func TestTTL_DeleteAndClear(t *testing.T) {
	c := NewTTL[string, int](time.Minute, nil)
	c.Set("a", 1)
	c.Set("b", 2)

	c.Delete("a")
	c.Delete("missing")
	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())
	_, ok = c.Get("b")
	assert.False(t, ok)
}
