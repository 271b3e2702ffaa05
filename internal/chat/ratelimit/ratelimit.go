// Package ratelimit caps how many messages a user may send per window.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"freelancehub/internal/common"
	"freelancehub/internal/httpx"
	"freelancehub/internal/metrics"

	"github.com/redis/go-redis/v9"
)

// Allower decides whether key may perform one more action.
type Allower interface {
	Allow(ctx context.Context, key string) (bool, int64, error)
}

// Limiter is a fixed-window counter in Redis shared by every replica.
type Limiter struct {
	rdb    redis.Cmdable
	limit  int64
	window time.Duration
}

func New(rdb redis.Cmdable, limit int64, window time.Duration) *Limiter {
	return &Limiter{rdb: rdb, limit: limit, window: window}
}

func (l *Limiter) Allow(ctx context.Context, key string) (bool, int64, error) {
	k := "rl:send:" + key
	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.ExpireNX(ctx, k, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, err
	}
	n := incr.Val()
	return n <= l.limit, n, nil
}

// Middleware rejects callers over their limit with 429. It keys on the caller
// identity, so it must run after common.AuthMiddleware.
func Middleware(a Allower, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := common.IdentityFrom(r.Context())
			if !ok {
				httpx.WriteDomainError(w, r, common.Authf("authorization required"))
				return
			}
			allowed, n, err := a.Allow(r.Context(), identity.UserID)
			if err != nil {
				slog.ErrorContext(r.Context(), "rate limiter unavailable", slog.Any("error", err))
				httpx.WriteError(w, http.StatusTooManyRequests, fmt.Errorf("rate limiter error"), "rate_limiter_error")
				return
			}
			if !allowed {
				m.RateLimited.Inc()
				httpx.WriteError(w, http.StatusTooManyRequests,
					fmt.Errorf("rate limit exceeded (count=%d)", n), "rate_limited")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
