package cache

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a Cache backed by a Redis server, shared across API replicas.
// Keys are namespaced with Prefix.
type Redis struct {
	client *redis.Client
	Prefix string
}

func NewRedis(addr string) *Redis {
	return NewRedisFromClient(redis.NewClient(&redis.Options{Addr: addr}))
}

func NewRedisFromClient(client *redis.Client) *Redis {
	return &Redis{client: client, Prefix: "payroll:"}
}

// Ping checks the connection.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Get treats every failure as a miss: a cache outage must not fail a request.
func (r *Redis) Get(ctx context.Context, key string) (string, bool) {
	val, err := r.client.Get(ctx, r.Prefix+key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("[Cache] redis get %s: %v", key, err)
		}
		return "", false
	}
	return val, true
}

func (r *Redis) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, r.Prefix+key, value, ttl).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}
