package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Redis is a Store backed by a shared Redis instance. Lab deployments point
// every kiosk at one box so a student can resume an attempt from a different
// seat. Values are unexpiring; ClearAttempt is the only reaper.
type Redis struct {
	rdb *redis.Client
}

// NewRedis parses the URL, validates connectivity and returns the store.
func NewRedis(ctx context.Context, redisURL string, log zerolog.Logger) (*Redis, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	rdb := redis.NewClient(opt)

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	log.Info().
		Str("addr", opt.Addr).
		Int("db", opt.DB).
		Msg("Redis connected")

	return &Redis{rdb: rdb}, nil
}

func (r *Redis) Get(ctx context.Context, key Key, dst any) error {
	raw, err := r.rdb.Get(ctx, key.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		return fmt.Errorf("get %s: %w", key, err)
	}
	return open(raw, dst)
}

func (r *Redis) Put(ctx context.Context, key Key, v any) error {
	raw, err := seal(v)
	if err != nil {
		return err
	}
	if err := r.rdb.Set(ctx, key.String(), raw, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, keys ...Key) error {
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.String()
	}
	if err := r.rdb.Del(ctx, names...).Err(); err != nil {
		return fmt.Errorf("delete keys: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (r *Redis) Close() error {
	return r.rdb.Close()
}
