package api

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/newsletter/internal/pkg/logger"
)

// RateLimiter caps subscribe attempts per client IP using a fixed window
// counter in Redis.
type RateLimiter struct {
	client    *redis.Client
	perMinute int
}

// NewRateLimiter creates a limiter allowing perMinute requests per IP.
func NewRateLimiter(client *redis.Client, perMinute int) *RateLimiter {
	return &RateLimiter{client: client, perMinute: perMinute}
}

// Middleware enforces the limit. Redis failures fail open: an outage of
// the limiter must not take subscriptions down with it.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		key := fmt.Sprintf("ratelimit:subscribe:%s:%d", ip, time.Now().Unix()/60)

		count, err := l.client.Incr(r.Context(), key).Result()
		if err != nil {
			logger.Warn("rate limiter unavailable", "error", err.Error())
			next.ServeHTTP(w, r)
			return
		}
		if count == 1 {
			l.client.Expire(r.Context(), key, time.Minute)
		}
		if count > int64(l.perMinute) {
			respondError(w, http.StatusTooManyRequests, "too many requests")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP trusts RemoteAddr, which the RealIP middleware has already
// rewritten from forwarding headers.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
