package adapter

import (
	"context"

	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
)

// Redis defines the Redis operations used for distributed rate limiting
//
//go:generate mockgen -source=redis.go -destination=../mocks/redis.go -package=mocks -mock_names=Redis=MockRedis
type Redis interface {
	// Ping checks if Redis is reachable
	Ping(ctx context.Context) error

	// Allow consumes one request from the GCRA bucket stored under key
	Allow(ctx context.Context, key string, limit redis_rate.Limit) (*redis_rate.Result, error)

	// Close closes the Redis connection
	Close() error
}

// RealRedis wraps a go-redis client and a redis_rate limiter over it
type RealRedis struct {
	client  *redis.Client
	limiter *redis_rate.Limiter
}

// NewRedis creates a new Redis adapter
func NewRedis(addr, password string, db int) Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RealRedis{
		client:  client,
		limiter: redis_rate.NewLimiter(client),
	}
}

func (r *RealRedis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RealRedis) Allow(ctx context.Context, key string, limit redis_rate.Limit) (*redis_rate.Result, error) {
	return r.limiter.Allow(ctx, key, limit)
}

func (r *RealRedis) Close() error {
	return r.client.Close()
}
