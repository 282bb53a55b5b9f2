package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"user-service/pkg/logger"
)

// RateLimiterConfig holds configuration for the rate limiter.
type RateLimiterConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	Burst             int
}

// tokenBucket refills at ARGV[1] tokens per second up to ARGV[2] and takes
// one token per call. Buckets idle for a minute expire.
var tokenBucket = redis.NewScript(`
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local bucket = redis.call('HMGET', key, 'last_refill', 'tokens')
local last_refill = tonumber(bucket[1]) or now
local tokens = tonumber(bucket[2]) or capacity

tokens = math.min(capacity, tokens + math.max(0, now - last_refill) * rate)

local allowed = 0
if tokens >= 1 then
	tokens = tokens - 1
	allowed = 1
end

redis.call('HSET', key, 'last_refill', tostring(now), 'tokens', tostring(tokens))
redis.call('EXPIRE', key, 60)
return allowed
`)

// RateLimiter throttles requests per method, path and client IP with a token
// bucket kept in Redis.
type RateLimiter struct {
	client redis.Scripter
	cfg    RateLimiterConfig
	log    *zap.Logger
	now    func() time.Time
}

// NewRateLimiter creates a rate limiter. A nil client disables limiting.
func NewRateLimiter(client redis.Scripter, cfg RateLimiterConfig, log *zap.Logger) *RateLimiter {
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	return &RateLimiter{client: client, cfg: cfg, log: log, now: time.Now}
}

// Allow takes a token from the bucket for key. Redis failures are returned to
// the caller.
func (rl *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := float64(rl.now().UnixMilli()) / 1000
	allowed, err := tokenBucket.Run(ctx, rl.client, []string{key},
		rl.cfg.RequestsPerSecond, rl.cfg.Burst, strconv.FormatFloat(now, 'f', 3, 64),
	).Int64()
	if err != nil {
		return false, fmt.Errorf("rate limit script: %w", err)
	}
	return allowed == 1, nil
}

// Middleware returns the gin handler. Requests pass through when Redis is
// unreachable.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl == nil || !rl.cfg.Enabled || rl.client == nil {
			c.Next()
			return
		}

		key := fmt.Sprintf("ratelimit:tb:%s:%s:%s", c.Request.Method, c.FullPath(), c.ClientIP())

		allowed, err := rl.Allow(c.Request.Context(), key)
		if err != nil {
			logger.WithContext(c.Request.Context(), rl.log).Warn("rate limiter unavailable, allowing request", zap.Error(err))
			c.Next()
			return
		}

		if !allowed {
			retry := 1
			if rl.cfg.RequestsPerSecond > 0 {
				retry = int(math.Ceil(1 / rl.cfg.RequestsPerSecond))
			}
			c.Header("Retry-After", strconv.Itoa(retry))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate_limit_exceeded",
				"message": fmt.Sprintf("Rate limit exceeded: %.2f requests/second (burst %d)", rl.cfg.RequestsPerSecond, rl.cfg.Burst),
			})
			return
		}

		c.Next()
	}
}
