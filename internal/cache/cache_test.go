package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryExpiry(t *testing.T) {
	now := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	c := &memory{m: map[string]entry{}, now: func() time.Time { return now }}
	ctx := context.Background()

	c.Set(ctx, "campaigns", []byte("rows"), 10*time.Second)
	v, ok := c.Get(ctx, "campaigns")
	require.True(t, ok)
	assert.Equal(t, "rows", string(v))

	now = now.Add(11 * time.Second)
	_, ok = c.Get(ctx, "campaigns")
	assert.False(t, ok, "entry past its ttl must miss")
}

func TestMemoryCopiesValue(t *testing.T) {
	c := NewMemory()
	ctx := context.Background()
	buf := []byte("abc")
	c.Set(ctx, "k", buf, 0)
	buf[0] = 'x'

	v, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "abc", string(v))

	c.Delete(ctx, "k")
	_, ok = c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestRedisCache(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewRedis(db, "yukti:")
	ctx := context.Background()

	t.Run("hit", func(t *testing.T) {
		mock.ExpectGet("yukti:campaigns").SetVal("payload")
		v, ok := c.Get(ctx, "campaigns")
		require.True(t, ok)
		assert.Equal(t, "payload", string(v))
	})

	t.Run("miss", func(t *testing.T) {
		mock.ExpectGet("yukti:issues").RedisNil()
		_, ok := c.Get(ctx, "issues")
		assert.False(t, ok)
	})

	t.Run("error is a miss", func(t *testing.T) {
		mock.ExpectGet("yukti:broken").SetErr(errors.New("conn reset"))
		_, ok := c.Get(ctx, "broken")
		assert.False(t, ok)
	})

	t.Run("set and delete", func(t *testing.T) {
		mock.ExpectSet("yukti:campaigns", []byte("v"), 10*time.Minute).SetVal("OK")
		c.Set(ctx, "campaigns", []byte("v"), 10*time.Minute)
		mock.ExpectDel("yukti:campaigns").SetVal(1)
		c.Delete(ctx, "campaigns")
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewWithoutAddrIsMemory(t *testing.T) {
	c, closeFn := New("")
	defer closeFn()
	_, ok := c.(*memory)
	assert.True(t, ok)
	assert.NoError(t, Ping(context.Background(), c))
}
