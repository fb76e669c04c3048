package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// hitScript mirrors advance() so counters stay consistent across instances.
// Returns {allowed, count, resetMs, blockUntilMs}.
var hitScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local max = tonumber(ARGV[3])
local block = tonumber(ARGV[4])

local state = redis.call('HMGET', key, 'count', 'reset', 'blocked', 'until')
local count = tonumber(state[1])
local reset = tonumber(state[2])
local blocked = state[3] == '1'
local blockUntil = tonumber(state[4]) or 0

local stale = count == nil or reset == nil
if not stale and now >= reset then
  stale = (not blocked) or now >= blockUntil
end
if stale then
  count = 0
  reset = now + window
  blocked = false
  blockUntil = 0
end

if blocked and now < blockUntil then
  return {0, count, reset, blockUntil}
end

count = count + 1
if count > max then
  blocked = true
  blockUntil = now + block
end

local flag = '0'
if blocked then flag = '1' end
redis.call('HSET', key, 'count', count, 'reset', reset, 'blocked', flag, 'until', blockUntil)

local expireAt = reset
if blockUntil > expireAt then expireAt = blockUntil end
redis.call('PEXPIREAT', key, expireAt)

if blocked then
  return {0, count, reset, blockUntil}
end
return {1, count, reset, 0}
`)

// RedisStore keeps counters in Redis hashes that expire on their own, so
// no sweep is needed.
type RedisStore struct {
	rdb    redis.Scripter
	prefix string
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(rdb redis.Scripter, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "portal:"
	}
	return &RedisStore{rdb: rdb, prefix: prefix}
}

// Hit implements Store.
func (s *RedisStore) Hit(ctx context.Context, key string, p Profile, blockFor time.Duration, now time.Time) (Result, error) {
	vals, err := hitScript.Run(ctx, s.rdb, []string{s.prefix + key},
		now.UnixMilli(),
		p.Window.Milliseconds(),
		p.MaxRequests,
		blockFor.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return Result{}, fmt.Errorf("rate limit script: %w", err)
	}
	if len(vals) != 4 {
		return Result{}, fmt.Errorf("rate limit script: unexpected reply %v", vals)
	}

	if vals[0] == 1 {
		return Result{
			Success:   true,
			Limit:     p.MaxRequests,
			Remaining: p.MaxRequests - int(vals[1]),
			ResetAt:   time.UnixMilli(vals[2]),
		}, nil
	}

	blockUntil := time.UnixMilli(vals[3])
	return Result{
		Success:    false,
		Limit:      p.MaxRequests,
		ResetAt:    blockUntil,
		RetryAfter: blockUntil.Sub(now),
	}, nil
}

// String returns a diagnostic representation of the store config.
func (s *RedisStore) String() string {
	return fmt.Sprintf("RedisStore{prefix=%s}", s.prefix)
}
