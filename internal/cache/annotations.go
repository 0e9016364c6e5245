package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// ErrCacheMiss is returned by a KVStore when the key does not exist.
var ErrCacheMiss = errors.New("cache miss")

// KVStore is the key/value backend of the annotation cache. Tests replace
// Redis with an in-memory store.
type KVStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
}

// RedisKVStore is a KVStore on go-redis.
type RedisKVStore struct {
	client *redis.Client
}

func NewRedisKVStore(client *redis.Client) *RedisKVStore {
	return &RedisKVStore{client: client}
}

func (r *RedisKVStore) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", ErrCacheMiss
		}
		return "", err
	}
	return val, nil
}

func (r *RedisKVStore) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

// AnnotationCache remembers image analyses keyed by prompt variant and image
// digest, so re-analysing the same image does not call the model again.
// Backend failures are logged and treated as misses.
type AnnotationCache struct {
	kv     KVStore
	ttl    time.Duration
	logger *zap.Logger
}

// NewAnnotationCache constructs a cache. A zero ttl keeps entries forever.
func NewAnnotationCache(kv KVStore, ttl time.Duration, logger *zap.Logger) *AnnotationCache {
	return &AnnotationCache{kv: kv, ttl: ttl, logger: logger}
}

// Key returns the cache key for an image analysed with the given variant.
func Key(variant string, image []byte) string {
	sum := sha256.Sum256(image)
	return "annotation:" + variant + ":" + hex.EncodeToString(sum[:])
}

// Lookup returns the cached annotation, if any.
func (c *AnnotationCache) Lookup(ctx context.Context, variant string, image []byte) (string, bool) {
	key := Key(variant, image)
	val, err := c.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			c.logger.Warn("annotation cache get failed", zap.String("key", key), zap.Error(err))
		}
		return "", false
	}
	c.logger.Debug("annotation cache hit", zap.String("key", key))
	return val, true
}

// Store saves an annotation.
func (c *AnnotationCache) Store(ctx context.Context, variant string, image []byte, annotation string) {
	key := Key(variant, image)
	if err := c.kv.Set(ctx, key, annotation, c.ttl); err != nil {
		c.logger.Warn("annotation cache set failed", zap.String("key", key), zap.Error(err))
	}
}
