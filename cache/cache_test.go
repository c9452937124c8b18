package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_GetSet(t *testing.T) {
	c := NewMemory()
	ctx := context.Background()

	_, ok := c.Get(ctx, "missing")
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "k", "v", 0))
	got, ok := c.Get(ctx, "k")
	assert.True(t, ok)
	assert.Equal(t, "v", got)

	require.NoError(t, c.Set(ctx, "k", "v2", 0))
	got, _ = c.Get(ctx, "k")
	assert.Equal(t, "v2", got)
}

func TestMemory_Expiry(t *testing.T) {
	c := NewMemory()
	now := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))

	now = now.Add(59 * time.Second)
	_, ok := c.Get(ctx, "k")
	assert.True(t, ok)

	now = now.Add(time.Second)
	_, ok = c.Get(ctx, "k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestRedis_UnreachableServerIsAMiss(t *testing.T) {
	r := NewRedis("127.0.0.1:1")
	defer r.Close()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, ok := r.Get(ctx, "k")

	assert.False(t, ok)
	assert.Error(t, r.Ping(ctx))
}

var _ Cache = (*Memory)(nil)
var _ Cache = (*Redis)(nil)
