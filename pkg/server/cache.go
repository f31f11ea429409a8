package server

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alumninet/directory-finder/pkg/common/jsoncompat"
	"github.com/alumninet/directory-finder/pkg/types"
)

// PageCache stores rendered result pages keyed by canonical query
// string. Only available pages go in, an upstream outage must never be
// served from cache as truth.
type PageCache interface {
	Get(key string) (types.ResultPage, bool)
	Set(key string, page types.ResultPage, expiration time.Duration)
}

type localEntry struct {
	expires time.Time
	page    types.ResultPage
}

// RedisPageCache is two-tier: a short-lived in-process map in front of
// redis, the same page is often requested back to back when users flip
// between grid and list layout.
type RedisPageCache struct {
	client *redis.Client
	ctx    context.Context
	mu     sync.Mutex
	local  map[string]localEntry
}

const localTTL = time.Minute

func NewRedisPageCache(addr, password string, db int) *RedisPageCache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisPageCache{
		client: rdb,
		ctx:    context.Background(),
		local:  make(map[string]localEntry),
	}
}

func (c *RedisPageCache) Get(key string) (types.ResultPage, bool) {
	c.mu.Lock()
	if entry, found := c.local[key]; found {
		if time.Now().Before(entry.expires) {
			c.mu.Unlock()
			return entry.page, true
		}
		delete(c.local, key)
	}
	c.mu.Unlock()

	data, err := c.client.Get(c.ctx, key).Bytes()
	if err != nil {
		return types.ResultPage{}, false
	}
	var page types.ResultPage
	if err := jsoncompat.Unmarshal(data, &page); err != nil {
		return types.ResultPage{}, false
	}
	c.mu.Lock()
	c.local[key] = localEntry{expires: time.Now().Add(localTTL), page: page}
	c.mu.Unlock()
	return page, true
}

func (c *RedisPageCache) Set(key string, page types.ResultPage, expiration time.Duration) {
	if !page.Available() {
		return
	}
	data, err := jsoncompat.Marshal(page)
	if err != nil {
		return
	}
	c.mu.Lock()
	c.local[key] = localEntry{expires: time.Now().Add(localTTL), page: page}
	c.mu.Unlock()
	c.client.Set(c.ctx, key, data, expiration)
}

func (c *RedisPageCache) Close() {
	c.client.Close()
}
