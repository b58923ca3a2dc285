package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"loan-engine/internal/config"

	"github.com/redis/go-redis/v9"
)

const unknownClient = "unknown"

// limiter decides whether the client identified by key may proceed.
type limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type RateLimiterMiddleware struct {
	limiter limiter
	cfg     config.RateLimitConfig
	logger  *slog.Logger
}

// NewRateLimiterMiddleware picks the backend named in cfg. The redis backend
// falls back to the in-process limiter when no client is available.
func NewRateLimiterMiddleware(cfg config.RateLimitConfig, redisClient *redis.Client, logger *slog.Logger) *RateLimiterMiddleware {
	logger = logger.With("component", "RateLimiter")
	rl := &RateLimiterMiddleware{cfg: cfg, logger: logger}

	if !cfg.Enabled {
		logger.Info("Rate limiting is disabled via configuration")
		return rl
	}

	switch {
	case cfg.Backend == config.RateLimitBackendRedis && redisClient != nil:
		rl.limiter = newFixedWindowLimiter(redisClient, cfg.RPS)
	case cfg.Backend == config.RateLimitBackendRedis:
		logger.Warn("Redis rate limiting requested but no Redis client provided; using in-process limiter")
		rl.limiter = newTokenBucketLimiter(cfg.RPS, cfg.Burst)
	default:
		rl.limiter = newTokenBucketLimiter(cfg.RPS, cfg.Burst)
	}
	logger.Info("Rate limiter configured", "backend", cfg.Backend, "rps", cfg.RPS, "burst", cfg.Burst)

	return rl
}

func (rl *RateLimiterMiddleware) IsEnabled() bool {
	return rl.cfg.Enabled && rl.limiter != nil
}

func (rl *RateLimiterMiddleware) extractIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ip := strings.TrimSpace(strings.Split(xff, ",")[0])
		if net.ParseIP(ip) != nil {
			return ip
		}
	}

	if xRealIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); xRealIP != "" {
		if net.ParseIP(xRealIP) != nil {
			return xRealIP
		}
	}

	if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return ip
	}
	if parsed := net.ParseIP(r.RemoteAddr); parsed != nil {
		return parsed.String()
	}
	return unknownClient
}

// Middleware fails open: a limiter error lets the request through.
func (rl *RateLimiterMiddleware) Middleware(next http.Handler) http.Handler {
	if !rl.IsEnabled() {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := rl.extractIP(r)

		allowed, err := rl.limiter.Allow(r.Context(), ip)
		if err != nil {
			rl.logger.ErrorContext(r.Context(), "Rate limiter check failed", "error", err, "ip", ip)
			next.ServeHTTP(w, r)
			return
		}

		if !allowed {
			rl.logger.WarnContext(r.Context(), "Rate limit exceeded", "ip", ip)
			message := fmt.Sprintf("Rate limit exceeded. Limit is %g requests per second.", rl.cfg.RPS)
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error":   message,
				"message": message,
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}
