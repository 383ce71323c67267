package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axonops/protodyn/internal/schema"
)

func TestCache_SetAndGet(t *testing.T) {
	c := New(10, time.Minute)
	c.Set("a", 1)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestCache_LRUEviction(t *testing.T) {
	c := New(2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	// Touch "a" so "b" becomes the eviction candidate.
	_, _ = c.Get("a")
	c.Set("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok, "least recently used entry must be evicted")
	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestCache_TTLExpiry(t *testing.T) {
	c := New(10, 10*time.Millisecond)
	c.Set("a", 1)
	time.Sleep(20 * time.Millisecond)

	_, ok := c.Get("a")
	assert.False(t, ok, "expired entries must not be returned")
}

func TestCache_CleanupExpired(t *testing.T) {
	c := New(10, 10*time.Millisecond)
	c.Set("a", 1)
	c.Set("b", 2)
	time.Sleep(20 * time.Millisecond)

	removed := c.CleanupExpired()
	assert.Equal(t, 2, removed)
	assert.Equal(t, 0, c.Size())
}

func TestCache_Clear(t *testing.T) {
	c := New(10, time.Minute)
	c.Set("a", 1)
	c.Clear()
	assert.Equal(t, 0, c.Size())
}

func TestSchemaCache(t *testing.T) {
	source := `syntax = "proto2"; message Example { optional int32 a = 1; }`
	parsed, err := schema.Parse(source)
	require.NoError(t, err)

	c := NewSchemaCache(10, time.Minute)
	fingerprint := schema.Fingerprint(source)

	_, ok := c.Get(fingerprint)
	assert.False(t, ok)

	c.Set(fingerprint, parsed)
	got, ok := c.Get(fingerprint)
	require.True(t, ok)
	assert.Same(t, parsed, got)
	assert.Equal(t, 1, c.Size())
}
