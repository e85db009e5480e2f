package presence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	cfgpkg "rfnode-go/services/gateway/internal/config"
)

// NewRedisClient connects and pings.
func NewRedisClient(cfg cfgpkg.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}

// Redis keeps the window under one key whose TTL ends with the window, so
// restarts of the gateway keep refusing commands until the node is back.
type Redis struct {
	rdb redis.Cmdable
	key string
	now func() time.Time
}

func NewRedis(rdb redis.Cmdable, prefix string) *Redis {
	return &Redis{rdb: rdb, key: prefix + "node", now: time.Now}
}

func (r *Redis) SetAsleepUntil(ctx context.Context, until time.Time) error {
	ttl := until.Sub(r.now())
	if ttl <= 0 {
		return r.Clear(ctx)
	}
	return r.rdb.Set(ctx, r.key, until.UTC().Format(time.RFC3339Nano), ttl).Err()
}

func (r *Redis) AsleepUntil(ctx context.Context) (time.Time, error) {
	v, err := r.rdb.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	until, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("presence key %s: %w", r.key, err)
	}
	return until, nil
}

func (r *Redis) Clear(ctx context.Context) error {
	return r.rdb.Del(ctx, r.key).Err()
}
