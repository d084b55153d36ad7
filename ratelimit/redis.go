// Copyright 2025 Gateway Authors
// SPDX-License-Identifier: BUSL-1.1

package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisLimiter implements the same three-window sliding-window contract as
// Limiter but backs each window with a Redis sorted set keyed by
// "<prefix>:<scope>:<key>", scored by the request's unix-nano timestamp.
// It is an optional collaborator: the in-memory Limiter remains the default
// and is what the testable properties in spec.md §8 are written against.
type RedisLimiter struct {
	cfg    Config
	client *redis.Client
	prefix string
}

// NewRedisLimiter builds a RedisLimiter. client may be backed by a real
// Redis server or, in tests, a miniredis instance.
func NewRedisLimiter(client *redis.Client, prefix string, cfg Config) *RedisLimiter {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisLimiter{cfg: cfg, client: client, prefix: prefix}
}

// Check mirrors Limiter.Check's semantics over Redis sorted sets: prune
// entries outside the window, count what remains, reject if at or above the
// limit, otherwise record the current timestamp. On any Redis error the
// window fails open (treated as not rate limited), since the rate limiter is
// an admission-control optimization, not a correctness-critical component.
func (r *RedisLimiter) Check(ctx context.Context, key string) error {
	if !r.cfg.Enabled {
		return nil
	}
	if err := r.checkWindow(ctx, ScopeSecond, key, r.cfg.RPS, time.Second); err != nil {
		return err
	}
	if err := r.checkWindow(ctx, ScopeMinute, key, r.cfg.RPM, time.Minute); err != nil {
		return err
	}
	if err := r.checkWindow(ctx, ScopeHour, key, r.cfg.RPH, time.Hour); err != nil {
		return err
	}
	return nil
}

func (r *RedisLimiter) checkWindow(ctx context.Context, scope Scope, key string, limit int, d time.Duration) error {
	if limit <= 0 {
		return nil
	}
	redisKey := fmt.Sprintf("%s:%s:%s", r.prefix, scope, key)
	now := time.Now()
	cutoff := now.Add(-d).UnixNano()

	if err := r.client.ZRemRangeByScore(ctx, redisKey, "-inf", fmt.Sprintf("%d", cutoff)).Err(); err != nil {
		return nil
	}
	count, err := r.client.ZCard(ctx, redisKey).Result()
	if err != nil {
		return nil
	}
	if int(count) >= limit {
		return &ErrTooManyRequests{Scope: scope, Limit: limit}
	}

	member := fmt.Sprintf("%d", now.UnixNano())
	r.client.ZAdd(ctx, redisKey, &redis.Z{Score: float64(now.UnixNano()), Member: member})
	r.client.Expire(ctx, redisKey, d+time.Minute)
	return nil
}
