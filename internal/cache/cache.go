package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Cache holds serialized snapshots for a bounded staleness window.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration)
	Delete(ctx context.Context, key string)
}

type memory struct {
	mu  sync.Mutex
	m   map[string]entry
	now func() time.Time
}

type entry struct {
	b   []byte
	exp time.Time
}

func NewMemory() Cache { return &memory{m: make(map[string]entry), now: time.Now} }

func (c *memory) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.m[key]
	if !ok {
		return nil, false
	}
	if !e.exp.IsZero() && c.now().After(e.exp) {
		delete(c.m, key)
		return nil, false
	}
	return e.b, true
}

func (c *memory) Set(_ context.Context, key string, val []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := entry{b: append([]byte(nil), val...)}
	if ttl > 0 {
		e.exp = c.now().Add(ttl)
	}
	c.m[key] = e
}

func (c *memory) Delete(_ context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, key)
}

// Redis shares snapshots between dashboard replicas.
type Redis struct {
	r      redis.Cmdable
	prefix string
}

const redisTimeout = 500 * time.Millisecond

func NewRedis(r redis.Cmdable, prefix string) *Redis { return &Redis{r: r, prefix: prefix} }

func (c *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()
	v, err := c.r.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		return nil, false
	}
	return v, true
}

func (c *Redis) Set(ctx context.Context, key string, val []byte, ttl time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()
	_ = c.r.Set(ctx, c.prefix+key, val, ttl).Err()
}

func (c *Redis) Delete(ctx context.Context, key string) {
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()
	_ = c.r.Del(ctx, c.prefix+key).Err()
}

// New returns a Redis-backed cache when addr is set, otherwise an in-process one.
// The returned closer releases the Redis client.
func New(addr string) (Cache, func() error) {
	if addr == "" {
		return NewMemory(), func() error { return nil }
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	return NewRedis(client, "yukti:"), client.Close
}

// Ping reports whether the Redis server answers; the memory cache is always up.
func Ping(ctx context.Context, c Cache) error {
	rc, ok := c.(*Redis)
	if !ok {
		return nil
	}
	if rc.r == nil {
		return errors.New("redis client not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()
	return rc.r.Ping(ctx).Err()
}
