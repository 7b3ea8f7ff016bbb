package middleware

import (
	"context"
	"credit-application-system/internal/config"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

const unknownClientIP = "unknown"

// limiter decides whether one more request from key fits the budget.
type limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type RateLimiterMiddleware struct {
	limiter limiter
	cfg     config.RateLimitConfig
	logger  *slog.Logger
}

// NewRateLimiterMiddleware counts requests in Redis when a client is given so
// that every replica shares one budget per IP. Without Redis each process
// keeps its own token buckets.
func NewRateLimiterMiddleware(cfg config.RateLimitConfig, redisClient *redis.Client, logger *slog.Logger) *RateLimiterMiddleware {
	logger = logger.With("component", "RateLimiter")
	rl := &RateLimiterMiddleware{cfg: cfg, logger: logger}

	switch {
	case !cfg.Enabled:
		logger.Info("Rate limiting is disabled via configuration.")
	case cfg.RPS <= 0:
		logger.Warn("Rate limiting enabled with a non-positive rps; disabling.", "rps", cfg.RPS)
		rl.cfg.Enabled = false
	case redisClient != nil:
		logger.Info("Rate limiter backed by Redis", "rps", cfg.RPS, "window", time.Second)
		rl.limiter = newRedisLimiter(redisClient, cfg.RPS, time.Second)
	default:
		logger.Info("Rate limiter backed by in-process token buckets", "rps", cfg.RPS, "burst", cfg.Burst)
		rl.limiter = newLocalLimiter(cfg.RPS, cfg.Burst)
	}
	return rl
}

func (rl *RateLimiterMiddleware) IsEnabled() bool {
	return rl.cfg.Enabled && rl.limiter != nil
}

func (rl *RateLimiterMiddleware) Middleware(next http.Handler) http.Handler {
	if !rl.IsEnabled() {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := rl.extractIP(r)
		if ip == unknownClientIP {
			rl.logger.ErrorContext(r.Context(), "Blocking request due to unknown client IP for rate limiting")
			writeJSONError(w, http.StatusForbidden, "Forbidden")
			return
		}

		allowed, err := rl.limiter.Allow(r.Context(), ip)
		if err != nil {
			// Fail open.
			rl.logger.ErrorContext(r.Context(), "Rate limit check failed", "ip", ip, slog.Any("error", err))
			next.ServeHTTP(w, r)
			return
		}
		if !allowed {
			rl.logger.WarnContext(r.Context(), "Rate limit exceeded", "ip", ip, "limit", rl.cfg.RPS)
			w.Header().Set("Retry-After", "1")
			writeJSONError(w, http.StatusTooManyRequests, "Rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// extractIP keys on the connection address. Proxy headers are honoured only
// when middleware.RealIP has already rewritten RemoteAddr from them.
func (rl *RateLimiterMiddleware) extractIP(r *http.Request) string {
	if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return ip
	}
	if parsed := net.ParseIP(r.RemoteAddr); parsed != nil {
		return parsed.String()
	}

	rl.logger.Warn("Could not determine client IP for rate limiting", "remoteAddr", r.RemoteAddr)
	return unknownClientIP
}

type localLimiter struct {
	limiters sync.Map
	rps      rate.Limit
	burst    int
}

func newLocalLimiter(rps float64, burst int) *localLimiter {
	if burst <= 0 {
		burst = int(rps)
		if burst < 1 {
			burst = 1
		}
	}
	return &localLimiter{rps: rate.Limit(rps), burst: burst}
}

func (l *localLimiter) Allow(_ context.Context, key string) (bool, error) {
	v, _ := l.limiters.LoadOrStore(key, rate.NewLimiter(l.rps, l.burst))
	return v.(*rate.Limiter).Allow(), nil
}

// sweep drops buckets that have refilled completely.
func (l *localLimiter) sweep(now time.Time) {
	l.limiters.Range(func(key, value interface{}) bool {
		if value.(*rate.Limiter).TokensAt(now) >= float64(l.burst) {
			l.limiters.Delete(key)
		}
		return true
	})
}

// StartCleanup sweeps idle in-process buckets until ctx is done. The returned
// channel is closed once the sweeper has exited. It is a no-op for the Redis
// backend, whose keys expire on their own.
func (rl *RateLimiterMiddleware) StartCleanup(ctx context.Context, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	local, ok := rl.limiter.(*localLimiter)
	if !ok {
		close(done)
		return done
	}
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				local.sweep(now)
			}
		}
	}()
	return done
}

// redisLimiter is a fixed-window counter: INCR per request, EXPIRE on the
// first hit of each window.
type redisLimiter struct {
	client redis.Cmdable
	limit  int64
	window time.Duration
}

func newRedisLimiter(client redis.Cmdable, rps float64, window time.Duration) *redisLimiter {
	limit := int64(rps)
	if limit < 1 {
		limit = 1
	}
	return &redisLimiter{client: client, limit: limit, window: window}
}

func (l *redisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := fmt.Sprintf("ratelimit:%s", key)

	pipe := l.client.Pipeline()
	incrCmd := pipe.Incr(ctx, redisKey)
	ttlCmd := pipe.TTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis pipeline: %w", err)
	}

	count, err := incrCmd.Result()
	if err != nil {
		return false, fmt.Errorf("redis incr: %w", err)
	}
	if ttl, err := ttlCmd.Result(); err == nil && ttl < 0 {
		if err := l.client.Expire(ctx, redisKey, l.window).Err(); err != nil {
			return false, fmt.Errorf("redis expire: %w", err)
		}
	}
	return count <= l.limit, nil
}
