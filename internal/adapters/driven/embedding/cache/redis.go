// Package cache provides embedding caches.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/custodia-labs/docintel/internal/core/ports/driven"
)

// Ensure RedisCache implements the interface.
var _ driven.EmbeddingCache = (*RedisCache)(nil)

// Default configuration values.
const (
	DefaultKeyPrefix   = "docintel:emb:"
	DefaultTTL         = 7 * 24 * time.Hour
	DefaultDialTimeout = 2 * time.Second
)

// Client is the subset of the go-redis client used by the cache.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// Config holds configuration for the Redis cache.
type Config struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	TTL       time.Duration
}

// RedisCache stores vectors as packed little-endian float32 values under a
// key derived from the model name and a SHA-256 of the text.
type RedisCache struct {
	client Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(ctx context.Context, cfg Config) (*RedisCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: DefaultDialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, DefaultDialTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Addr, err)
	}

	return NewWithClient(rdb, cfg), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client Client, cfg Config) *RedisCache {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultKeyPrefix
	}
	if cfg.TTL == 0 {
		cfg.TTL = DefaultTTL
	}
	return &RedisCache{client: client, prefix: cfg.KeyPrefix, ttl: cfg.TTL}
}

// Get returns the cached vector for model and text.
func (c *RedisCache) Get(ctx context.Context, model, text string) ([]float32, bool, error) {
	data, err := c.client.Get(ctx, c.key(model, text)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	if len(data)%4 != 0 {
		return nil, false, fmt.Errorf("redis get: cached value has %d bytes", len(data))
	}
	return decode(data), true, nil
}

// Set stores vector for model and text.
func (c *RedisCache) Set(ctx context.Context, model, text string, vector []float32) error {
	if err := c.client.Set(ctx, c.key(model, text), encode(vector), c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Close closes the client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) key(model, text string) string {
	sum := sha256.Sum256([]byte(text))
	return c.prefix + model + ":" + hex.EncodeToString(sum[:])
}

func encode(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decode(buf []byte) []float32 {
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return v
}
