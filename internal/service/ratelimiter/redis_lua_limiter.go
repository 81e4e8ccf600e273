// Package ratelimiter provides a Redis-backed token bucket used to meter
// per-user AI calls.
package ratelimiter

import (
	"context"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// BucketConfig describes a token bucket.
type BucketConfig struct {
	Capacity   int64
	RefillRate float64 // tokens per second
}

// NewBucketConfigFromPerMinute builds a bucket that refills perMinute tokens every minute.
func NewBucketConfigFromPerMinute(perMinute int) BucketConfig {
	if perMinute <= 0 {
		return BucketConfig{}
	}
	return BucketConfig{
		Capacity:   int64(perMinute),
		RefillRate: float64(perMinute) / 60.0,
	}
}

func (c BucketConfig) enabled() bool { return c.Capacity > 0 && c.RefillRate > 0 }

// RedisLuaLimiter implements domain.QuotaLimiter. Buckets are resolved by
// the key's class, the text before the first ':' ("ai:<userID>" -> "ai").
type RedisLuaLimiter struct {
	redis   redis.Scripter
	buckets map[string]BucketConfig
	script  *redis.Script
	now     func() time.Time
	mu      sync.RWMutex
}

// NewRedisLuaLimiter returns nil when rdb is nil; a nil limiter allows everything.
func NewRedisLuaLimiter(rdb redis.Scripter, buckets map[string]BucketConfig) *RedisLuaLimiter {
	if rdb == nil {
		return nil
	}
	if buckets == nil {
		buckets = map[string]BucketConfig{}
	}
	return &RedisLuaLimiter{
		redis:   rdb,
		buckets: buckets,
		script:  redis.NewScript(luaTokenBucketScript),
		now:     time.Now,
	}
}

const luaTokenBucketScript = `
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local refill_rate = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local cost = tonumber(ARGV[4])

local tokens = capacity
local last_refill = now

local data = redis.call("HMGET", key, "tokens", "last_refill")
if data[1] ~= false and data[1] ~= nil then
  tokens = tonumber(data[1])
end
if data[2] ~= false and data[2] ~= nil then
  last_refill = tonumber(data[2])
end

local delta = now - last_refill
if delta < 0 then
  delta = 0
end

tokens = math.min(capacity, tokens + delta * refill_rate)
last_refill = now

local allowed = 0
local retry_after = 0

if tokens >= cost then
  tokens = tokens - cost
  allowed = 1
else
  retry_after = (cost - tokens) / refill_rate
end

redis.call("HSET", key, "tokens", tostring(tokens), "last_refill", tostring(last_refill))
redis.call("EXPIRE", key, math.ceil(capacity / refill_rate) + 60)

return { allowed, tostring(retry_after) }
`

// Allow consumes cost tokens from the bucket behind key. Redis failures fail
// open: the call is allowed and the error is returned for logging.
func (l *RedisLuaLimiter) Allow(ctx context.Context, key string, cost int) (bool, time.Duration, error) {
	if l == nil || l.redis == nil {
		return true, 0, nil
	}
	cfg, ok := l.bucketFor(key)
	if !ok || !cfg.enabled() {
		return true, 0, nil
	}
	if cost <= 0 {
		cost = 1
	}

	nowSec := float64(l.now().UnixNano()) / 1e9
	res, err := l.script.Run(ctx, l.redis, []string{"rate:" + key}, cfg.Capacity, cfg.RefillRate, nowSec, cost).Result()
	if err != nil {
		slog.Error("redis rate limiter script error", slog.String("key", key), slog.Any("error", err))
		return true, 0, err
	}

	vals, ok := res.([]interface{})
	if !ok || len(vals) < 2 {
		slog.Error("redis rate limiter unexpected script result", slog.String("key", key), slog.Any("result", res))
		return true, 0, nil
	}

	allowed := toInt64(vals[0]) == 1
	retryAfter := time.Duration(toFloat64(vals[1]) * float64(time.Second))
	if allowed {
		retryAfter = 0
	}
	return allowed, retryAfter, nil
}

// SetBucketConfig updates or creates the bucket for a key class. It is safe for concurrent use.
func (l *RedisLuaLimiter) SetBucketConfig(class string, cfg BucketConfig) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buckets[class] = cfg
}

func (l *RedisLuaLimiter) bucketFor(key string) (BucketConfig, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if cfg, ok := l.buckets[key]; ok {
		return cfg, true
	}
	class, _, found := strings.Cut(key, ":")
	if !found {
		return BucketConfig{}, false
	}
	cfg, ok := l.buckets[class]
	return cfg, ok
}

func toInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	default:
		return 0
	}
}

// toFloat64 accepts the string form the script returns; Redis truncates Lua numbers to integers.
func toFloat64(v interface{}) float64 {
	switch t := v.(type) {
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0
		}
		return f
	case float64:
		return t
	case int64:
		return float64(t)
	default:
		return math.NaN()
	}
}
