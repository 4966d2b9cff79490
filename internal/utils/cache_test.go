package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 条目过了 TTL 后按未命中处理
func TestLookupCacheExpiry(t *testing.T) {
	c := NewLookupCache[string](10, 20*time.Millisecond)
	c.Set("movie:inception:2010", "cached-card")

	got, found := c.Get("movie:inception:2010")
	require.True(t, found)
	assert.Equal(t, "cached-card", got)

	time.Sleep(60 * time.Millisecond)

	_, found = c.Get("movie:inception:2010")
	assert.False(t, found)
}

// 超出容量时逐出最久未用的键
func TestLookupCacheEviction(t *testing.T) {
	c := NewLookupCache[int](2, time.Hour)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	assert.Equal(t, 2, c.Len())
	_, found := c.Get("a")
	assert.False(t, found)

	got, found := c.Get("c")
	require.True(t, found)
	assert.Equal(t, 3, got)
}

// 覆盖写入直接替换旧值
func TestLookupCacheOverwrite(t *testing.T) {
	c := NewLookupCache[string](10, time.Hour)
	c.Set("tv:task:2025", "old")
	c.Set("tv:task:2025", "new")

	got, found := c.Get("tv:task:2025")
	require.True(t, found)
	assert.Equal(t, "new", got)
	assert.Equal(t, 1, c.Len())
}
