// Package core provides the shared building blocks of sushichat: logging,
// configuration, errors, HTTP middleware and key/value memory backends.
//
// RedisClient wraps go-redis with DB selection and key namespacing so quotes
// and chat sessions can live in Redis when several instances share state.
//
// Usage:
//
//	client, err := NewRedisClient(RedisClientOptions{
//	    RedisURL:  "redis://localhost:6379",
//	    DB:        2,
//	    Namespace: "sushichat",
//	})
package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisClient implements Memory on top of Redis.
type RedisClient struct {
	client    *redis.Client
	dbID      int
	namespace string
	logger    Logger
}

// RedisClientOptions configures the Redis client
type RedisClientOptions struct {
	RedisURL  string
	DB        int    // Redis DB number for isolation (0-15), negative keeps the URL's DB
	Namespace string // Key namespace for organization
	Logger    Logger // Optional logger
}

// NewRedisClient parses the URL, selects the DB and verifies connectivity with PING.
func NewRedisClient(opts RedisClientOptions) (*RedisClient, error) {
	logger := opts.Logger
	if logger == nil {
		logger = &NoOpLogger{}
	}

	if opts.RedisURL == "" {
		return nil, fmt.Errorf("redis URL is required: %w", ErrMissingConfiguration)
	}

	redisOpt, err := redis.ParseURL(opts.RedisURL)
	if err != nil {
		logger.Error("Failed to parse Redis URL", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, fmt.Errorf("invalid Redis URL: %w", ErrInvalidConfiguration)
	}
	if opts.DB >= 0 && opts.DB <= 15 {
		redisOpt.DB = opts.DB
	}

	client := redis.NewClient(redisOpt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("Failed to connect to Redis", map[string]interface{}{
			"error":     err.Error(),
			"db":        redisOpt.DB,
			"namespace": opts.Namespace,
		})
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis DB %d: %w", redisOpt.DB, ErrConnectionFailed)
	}

	logger.Info("Redis client connected", map[string]interface{}{
		"db":        redisOpt.DB,
		"namespace": opts.Namespace,
	})

	return &RedisClient{
		client:    client,
		dbID:      redisOpt.DB,
		namespace: opts.Namespace,
		logger:    logger,
	}, nil
}

// NewRedisClientFrom wraps an existing go-redis client.
func NewRedisClientFrom(client *redis.Client, namespace string, logger Logger) *RedisClient {
	if logger == nil {
		logger = &NoOpLogger{}
	}
	return &RedisClient{
		client:    client,
		dbID:      client.Options().DB,
		namespace: namespace,
		logger:    logger,
	}
}

// WithNamespace returns a client sharing the connection under another namespace.
func (r *RedisClient) WithNamespace(namespace string) *RedisClient {
	return &RedisClient{
		client:    r.client,
		dbID:      r.dbID,
		namespace: namespace,
		logger:    r.logger,
	}
}

// Close closes the Redis connection
func (r *RedisClient) Close() error {
	return r.client.Close()
}

// Namespace returns the key namespace.
func (r *RedisClient) Namespace() string {
	return r.namespace
}

func (r *RedisClient) formatKey(key string) string {
	if r.namespace != "" {
		return r.namespace + ":" + key
	}
	return key
}

// Get returns "" with no error for missing keys, matching MemoryStore.
func (r *RedisClient) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, r.formatKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		r.logger.ErrorWithContext(ctx, "Redis get failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return "", err
	}
	return val, nil
}

// Set stores a value with optional TTL
func (r *RedisClient) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return r.client.Set(ctx, r.formatKey(key), value, ttl).Err()
}

// Delete removes a key
func (r *RedisClient) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.formatKey(key)).Err()
}

// Exists checks if a key exists
func (r *RedisClient) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, r.formatKey(key)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// HealthCheck verifies Redis connectivity
func (r *RedisClient) HealthCheck(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		r.logger.ErrorWithContext(ctx, "Redis health check failed", map[string]interface{}{
			"error":     err.Error(),
			"db":        r.dbID,
			"namespace": r.namespace,
		})
		return err
	}
	return nil
}
