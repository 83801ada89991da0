package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/iqbaliqra/Weatherapp/internal/config"
	apierrors "github.com/iqbaliqra/Weatherapp/internal/pkg/errors"
	"github.com/iqbaliqra/Weatherapp/internal/pkg/response"
)

const rateLimitWindow = time.Minute

// Counter increments a windowed counter. *database.Redis implements it.
type Counter interface {
	IncrWithExpire(ctx context.Context, key string, expiration time.Duration) (int64, error)
}

// RateLimit returns a fixed-window rate limiting middleware keyed by client IP.
// Requests are allowed through when the counter store fails.
func RateLimit(counter Counter, cfg config.RateLimitConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			now := time.Now()
			window := now.Truncate(rateLimitWindow)
			key := fmt.Sprintf("ratelimit:%s:%d", clientIP(r), window.Unix())

			count, err := counter.IncrWithExpire(r.Context(), key, rateLimitWindow)
			if err != nil {
				slog.Warn("rate limiter unavailable", slog.String("error", err.Error()))
				next.ServeHTTP(w, r)
				return
			}

			limit := cfg.RequestsPerMinute
			remaining := limit - int(count)
			if remaining < 0 {
				remaining = 0
			}
			reset := window.Add(rateLimitWindow)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))

			if int(count) > limit+cfg.BurstSize {
				retryAfter := int(reset.Sub(now).Seconds()) + 1
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				response.Error(w, apierrors.ErrRateLimited)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP returns the request's remote host. chi's RealIP middleware has
// already applied proxy headers to RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
