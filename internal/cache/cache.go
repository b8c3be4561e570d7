/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package cache

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/cache/v9"
	"github.com/jerry-enebeli/passbook/config"
	redis_db "github.com/jerry-enebeli/passbook/internal/redis-db"
	"github.com/redis/go-redis/v9"
)

// Cache stores read-model lookups such as a user's account directory.
type Cache interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	// Get decodes the value under key into dest and reports whether it was found.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Delete(ctx context.Context, key string) error
	// Once fills dest from the cache, calling load on a miss. Concurrent
	// misses for the same key share one load call.
	Once(ctx context.Context, key string, dest interface{}, ttl time.Duration, load func() (interface{}, error)) error
}

const (
	localCacheSize = 10000
	localCacheTTL  = time.Minute
)

type RedisCache struct {
	cache *cache.Cache
}

// NewCache connects to the configured Redis and returns a cache with a
// small in-process TinyLFU layer in front of it.
func NewCache() (Cache, error) {
	cfg, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	client, err := redis_db.NewRedisClient(redis_db.SplitAddresses(cfg.Redis.Dns), cfg.Redis.SkipTLSVerify)
	if err != nil {
		return nil, err
	}
	return New(client.Client(), true), nil
}

func New(client redis.UniversalClient, local bool) *RedisCache {
	opts := &cache.Options{Redis: client}
	if local {
		opts.LocalCache = cache.NewTinyLFU(localCacheSize, localCacheTTL)
	}
	return &RedisCache{cache: cache.New(opts)}
}

func (r *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return r.cache.Set(&cache.Item{Ctx: ctx, Key: key, Value: value, TTL: ttl})
}

func (r *RedisCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	err := r.cache.Get(ctx, key, dest)
	if errors.Is(err, cache.ErrCacheMiss) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *RedisCache) Delete(ctx context.Context, key string) error {
	err := r.cache.Delete(ctx, key)
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil
	}
	return err
}

func (r *RedisCache) Once(ctx context.Context, key string, dest interface{}, ttl time.Duration, load func() (interface{}, error)) error {
	return r.cache.Once(&cache.Item{
		Ctx:   ctx,
		Key:   key,
		Value: dest,
		TTL:   ttl,
		Do: func(*cache.Item) (interface{}, error) {
			return load()
		},
	})
}

func AccountsKey(userID string) string {
	return "passbook:accounts:" + userID
}

func CategoriesKey(userID string) string {
	return "passbook:categories:" + userID
}
