// Copyright 2025 PromptGate
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"promptgate/shared/logger"
)

// consumeScript runs the refill-then-maybe-consume step atomically on the
// Redis side so that every gateway instance sees the same bucket state.
// KEYS[1] bucket key; ARGV: capacity, refill rate (tokens/sec), now (ms),
// cost, key TTL (ms). Returns {allowed, remaining}.
const consumeScript = `
local state = redis.call('HMGET', KEYS[1], 'tokens', 'ts')
local capacity = tonumber(ARGV[1])
local rate = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local cost = tonumber(ARGV[4])

local tokens = tonumber(state[1])
local ts = tonumber(state[2])
if tokens == nil or ts == nil then
  tokens = capacity
  ts = now
end

local elapsed = (now - ts) / 1000.0
if elapsed > 0 then
  tokens = math.min(capacity, tokens + elapsed * rate)
end

local allowed = 0
if tokens >= cost then
  tokens = tokens - cost
  allowed = 1
end

redis.call('HMSET', KEYS[1], 'tokens', tokens, 'ts', now)
redis.call('PEXPIRE', KEYS[1], ARGV[5])
return {allowed, math.floor(tokens)}
`

// globalBucketKey is the bucket key used when per-client mode is off.
const globalBucketKey = "__global__"

// RedisLimiter shares token-bucket state across gateway instances through
// Redis. When Redis is unreachable the limiter fails over to a local
// in-memory Limiter rather than rejecting traffic outright.
type RedisLimiter struct {
	client     *redis.Client
	capacity   int
	refillRate float64
	perClient  bool
	keyTTL     time.Duration
	fallback   *Limiter
	log        *logger.Logger
	now        func() time.Time
}

// NewRedisLimiter connects to Redis and verifies the connection.
func NewRedisLimiter(redisURL string, capacity int, refillRate float64, perClient bool, log *logger.Logger) (*RedisLimiter, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return newRedisLimiter(client, capacity, refillRate, perClient, log), nil
}

func newRedisLimiter(client *redis.Client, capacity int, refillRate float64, perClient bool, log *logger.Logger) *RedisLimiter {
	// Keep keys around long enough for an idle bucket to refill fully.
	ttl := 2 * time.Minute
	if refillRate > 0 {
		refillTime := time.Duration(float64(capacity)/refillRate) * time.Second
		if 2*refillTime > ttl {
			ttl = 2 * refillTime
		}
	}
	return &RedisLimiter{
		client:     client,
		capacity:   capacity,
		refillRate: refillRate,
		perClient:  perClient,
		keyTTL:     ttl,
		fallback:   NewLimiter(capacity, refillRate, perClient),
		log:        log,
		now:        time.Now,
	}
}

// Check spends cost tokens for clientID against the shared bucket state.
// On any Redis error the decision is delegated to the in-memory fallback.
func (r *RedisLimiter) Check(ctx context.Context, clientID string, cost float64) (bool, int) {
	key := r.key(clientID)

	res, err := r.client.Eval(ctx, consumeScript, []string{key},
		r.capacity,
		r.refillRate,
		r.now().UnixMilli(),
		cost,
		r.keyTTL.Milliseconds(),
	).Result()
	if err != nil {
		if r.log != nil {
			r.log.Warn(clientID, "", "redis rate limit check failed, using in-memory fallback", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return r.fallback.Check(ctx, clientID, cost)
	}

	vals, ok := res.([]interface{})
	if !ok || len(vals) != 2 {
		return r.fallback.Check(ctx, clientID, cost)
	}
	allowed, _ := vals[0].(int64)
	remaining, _ := vals[1].(int64)
	return allowed == 1, int(remaining)
}

// Close releases the Redis connection pool.
func (r *RedisLimiter) Close() error {
	return r.client.Close()
}

func (r *RedisLimiter) key(clientID string) string {
	if !r.perClient {
		clientID = globalBucketKey
	}
	return "promptgate:ratelimit:" + clientID
}
