// SPDX-License-Identifier: MIT

package cache

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redisCache) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, &redisCache{
		client: client,
		logger: zerolog.Nop(),
	}
}

func TestRedisCache_SetGet(t *testing.T) {
	mr, c := newTestRedis(t)

	c.Set("digest-a", []byte("payload"), 5*time.Minute)

	val, ok := c.Get("digest-a")
	require.True(t, ok)
	assert.Equal(t, []byte("payload"), val)

	// The server-side key carries the namespace.
	assert.True(t, mr.Exists(keyPrefix+"digest-a"))
	assert.False(t, mr.Exists("digest-a"))

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Sets)
	assert.Equal(t, int64(1), stats.Hits)
}

func TestRedisCache_GetMissing(t *testing.T) {
	_, c := newTestRedis(t)

	val, ok := c.Get("nonexistent")
	assert.False(t, ok)
	assert.Nil(t, val)
	assert.Equal(t, int64(1), c.Stats().Misses)
}

func TestRedisCache_TTL(t *testing.T) {
	mr, c := newTestRedis(t)

	c.Set("short-lived", []byte("v"), 100*time.Millisecond)

	_, ok := c.Get("short-lived")
	require.True(t, ok, "entry should be live before its TTL elapses")

	mr.FastForward(200 * time.Millisecond)

	_, ok = c.Get("short-lived")
	assert.False(t, ok, "entry should expire server side")
}

func TestRedisCache_Delete(t *testing.T) {
	_, c := newTestRedis(t)

	c.Set("doomed", []byte("v"), 5*time.Minute)
	c.Delete("doomed")

	_, ok := c.Get("doomed")
	assert.False(t, ok)
}

func TestRedisCache_ClearSparesForeignKeys(t *testing.T) {
	mr, c := newTestRedis(t)

	c.Set("mine-1", []byte("a"), 5*time.Minute)
	c.Set("mine-2", []byte("b"), 5*time.Minute)
	require.NoError(t, mr.Set("other-app:state", "keep"))

	require.Equal(t, 2, c.Stats().CurrentSize, "foreign keys must not count")

	c.Clear()

	assert.Equal(t, 0, c.Stats().CurrentSize)
	_, ok := c.Get("mine-1")
	assert.False(t, ok)
	assert.True(t, mr.Exists("other-app:state"), "clear must stay inside the namespace")
}

func TestRedisCache_BinaryValue(t *testing.T) {
	_, c := newTestRedis(t)

	// Serialized analysis payloads may contain arbitrary bytes.
	payload := []byte{0x00, 0xff, '{', '"', 'a', '"', ':', '1', '}'}
	c.Set("binary", payload, 5*time.Minute)

	val, ok := c.Get("binary")
	require.True(t, ok)
	assert.Equal(t, payload, val)
}

func TestRedisCache_ErrorDegradesToMiss(t *testing.T) {
	mr, c := newTestRedis(t)

	c.Set("k", []byte("v"), 5*time.Minute)
	mr.Close()

	val, ok := c.Get("k")
	assert.False(t, ok, "a broken backend must read as a miss, not a panic")
	assert.Nil(t, val)
}

func TestRedisCache_Close(t *testing.T) {
	_, c := newTestRedis(t)
	assert.NoError(t, c.Close())
}

func TestNewRedisCache_ConnectionFailure(t *testing.T) {
	_, err := NewRedisCache(RedisConfig{Addr: "127.0.0.1:1"}, zerolog.Nop())
	require.Error(t, err, "unreachable address must fail fast")
}
