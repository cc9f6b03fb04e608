package app

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultRateLimitPrefix = "kyc:rate_limit"
	minRateLimitWindow     = time.Second
)

var registrationRateLimitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  ttl = tonumber(ARGV[1])
end
return {current, ttl}
`)

// RedisRegistrationRateLimiter implements distributed rate limiting for the
// public registration endpoint using Redis. The key prefix and counting
// window are fixed at construction. A nil limiter (or nil client) is a
// no-op, so handlers never need to branch on whether Redis is configured.
type RedisRegistrationRateLimiter struct {
	client   redis.UniversalClient
	prefix   string
	windowMs int64
}

// NewRedisRegistrationRateLimiter builds a limiter counting attempts per
// subject within the given window. An empty prefix falls back to the
// default; windows below one second are raised to it, since PTTL resolution
// makes shorter windows meaningless.
func NewRedisRegistrationRateLimiter(client redis.UniversalClient, prefix string, window time.Duration) *RedisRegistrationRateLimiter {
	p := strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if p == "" {
		p = defaultRateLimitPrefix
	}
	if window < minRateLimitWindow {
		window = minRateLimitWindow
	}
	return &RedisRegistrationRateLimiter{
		client:   client,
		prefix:   p,
		windowMs: window.Milliseconds(),
	}
}

func (r *RedisRegistrationRateLimiter) key(subject string) string {
	return fmt.Sprintf("%s:registration:%s", r.prefix, subject)
}

// ConsumeRateLimit counts one attempt for the subject and reports the current
// count plus the seconds until the window resets. Limiter failures return an
// error so the caller can decide to fail open.
func (r *RedisRegistrationRateLimiter) ConsumeRateLimit(ctx context.Context, subject string, limit int) (count int, retryAfterSeconds int, err error) {
	if r == nil || r.client == nil || limit <= 0 {
		return 0, 0, nil
	}
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return 0, 0, nil
	}

	rawResult, err := registrationRateLimitScript.Run(ctx, r.client, []string{r.key(subject)}, r.windowMs).Result()
	if err != nil {
		return 0, 0, err
	}

	values, ok := rawResult.([]interface{})
	if !ok || len(values) != 2 {
		return 0, 0, fmt.Errorf("unexpected redis limiter response shape: %T", rawResult)
	}
	currentCount, ok := values[0].(int64)
	if !ok {
		return 0, 0, fmt.Errorf("unexpected redis limiter count type: %T", values[0])
	}
	ttlMs, ok := values[1].(int64)
	if !ok {
		return int(currentCount), 0, fmt.Errorf("unexpected redis limiter ttl type: %T", values[1])
	}
	if ttlMs < 0 {
		ttlMs = r.windowMs
	}

	retryAfter := int(math.Ceil(float64(ttlMs) / 1000.0))
	return int(currentCount), retryAfter, nil
}
