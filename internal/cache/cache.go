package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kiranshivaraju/keyserver/pkg/models"
	"github.com/redis/go-redis/v9"
)

// Cache holds bound activation key records. Implementations must be safe
// for concurrent use.
type Cache interface {
	Ping(ctx context.Context) error

	// GetKey reports a miss for revoked keys.
	GetKey(ctx context.Context, key string) (*models.ActivationKey, bool, error)

	// SetKey stores k only when the key has no entry yet. A revoked key
	// stays revoked until its marker expires.
	SetKey(ctx context.Context, k *models.ActivationKey) error

	// Revoke replaces the entries of keys with revocation markers. It must
	// succeed before the keys are deleted from the store.
	Revoke(ctx context.Context, keys ...string) error
}

// revoked is the value stored in place of a removed key's record.
const revoked = "revoked"

// RedisCache implements the Cache interface using go-redis/v9.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a new RedisCache from a Redis URL. Entries expire
// after ttl.
func NewRedisCache(redisURL string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &RedisCache{client: redis.NewClient(opts), ttl: ttl}, nil
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) GetKey(ctx context.Context, key string) (*models.ActivationKey, bool, error) {
	val, err := c.client.Get(ctx, ActivationKeyKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if string(val) == revoked {
		return nil, false, nil
	}
	var k models.ActivationKey
	if err := json.Unmarshal(val, &k); err != nil {
		return nil, false, fmt.Errorf("decode cached key: %w", err)
	}
	return &k, true, nil
}

func (c *RedisCache) SetKey(ctx context.Context, k *models.ActivationKey) error {
	val, err := json.Marshal(k)
	if err != nil {
		return fmt.Errorf("encode key: %w", err)
	}
	return c.client.SetNX(ctx, ActivationKeyKey(k.Key), val, c.ttl).Err()
}

func (c *RedisCache) Revoke(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := c.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, k := range keys {
			pipe.Set(ctx, ActivationKeyKey(k), revoked, c.ttl)
		}
		return nil
	})
	return err
}

// NopCache is used when no Redis is configured. It never holds anything.
type NopCache struct{}

func (NopCache) Ping(context.Context) error { return nil }
func (NopCache) GetKey(context.Context, string) (*models.ActivationKey, bool, error) {
	return nil, false, nil
}
func (NopCache) SetKey(context.Context, *models.ActivationKey) error { return nil }
func (NopCache) Revoke(context.Context, ...string) error             { return nil }
