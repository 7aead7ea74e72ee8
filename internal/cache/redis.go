package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisCache implements MaskCache using Redis
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a new Redis mask cache
func NewRedisCache(addr, password string, db int) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisCache{client: client}, nil
}

// Get retrieves a membership's cached mask
func (r *RedisCache) Get(ctx context.Context, membershipID uuid.UUID) (uint64, error) {
	val, err := r.client.Get(ctx, maskKey(membershipID)).Result()
	if err == redis.Nil {
		return 0, ErrCacheMiss
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get from cache: %w", err)
	}
	mask, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		// Malformed entry; treat as a miss so the resolver recomputes.
		return 0, ErrCacheMiss
	}
	return mask, nil
}

// Set stores a membership's mask
func (r *RedisCache) Set(ctx context.Context, membershipID uuid.UUID, mask uint64, ttl time.Duration) error {
	val := strconv.FormatUint(mask, 10)
	if err := r.client.Set(ctx, maskKey(membershipID), val, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

// Invalidate drops a membership's cached mask
func (r *RedisCache) Invalidate(ctx context.Context, membershipID uuid.UUID) error {
	if err := r.client.Del(ctx, maskKey(membershipID)).Err(); err != nil {
		return fmt.Errorf("failed to delete from cache: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (r *RedisCache) Close() error {
	return r.client.Close()
}
