package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"freelancehub/internal/common"
	"freelancehub/internal/metrics"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingAllower struct {
	limit int64
	seen  map[string]int64
	err   error
}

func (c *countingAllower) Allow(ctx context.Context, key string) (bool, int64, error) {
	if c.err != nil {
		return false, 0, c.err
	}
	c.seen[key]++
	return c.seen[key] <= c.limit, c.seen[key], nil
}

func limitedHandler(a Allower, m *metrics.Metrics) http.Handler {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusCreated) })
	return Middleware(a, m)(ok)
}

func send(h http.Handler, user string) int {
	req := httptest.NewRequest(http.MethodPost, "/messages", nil)
	if user != "" {
		req = req.WithContext(common.WithIdentity(req.Context(), &common.Identity{UserID: user, Role: common.RoleUser}))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestMiddleware_LimitsPerUser(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	h := limitedHandler(&countingAllower{limit: 2, seen: map[string]int64{}}, m)

	assert.Equal(t, http.StatusCreated, send(h, "alice"))
	assert.Equal(t, http.StatusCreated, send(h, "alice"))
	assert.Equal(t, http.StatusTooManyRequests, send(h, "alice"))
	assert.Equal(t, http.StatusCreated, send(h, "bob"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLimited))
}

func TestMiddleware_Failures(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())

	h := limitedHandler(&countingAllower{limit: 2, seen: map[string]int64{}}, m)
	assert.Equal(t, http.StatusUnauthorized, send(h, ""))

	h = limitedHandler(&countingAllower{err: errors.New("redis down")}, m)
	assert.Equal(t, http.StatusTooManyRequests, send(h, "alice"))
	assert.Zero(t, testutil.ToFloat64(m.RateLimited))
}

// Runs against a live Redis when REDIS_TEST_ADDR is set.
func TestLimiter_Redis(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })

	l := New(rdb, 2, time.Minute)
	key := uuid.NewString()
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		allowed, n, err := l.Allow(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, int64(i), n)
		assert.Equal(t, i <= 2, allowed)
	}

	ttl, err := rdb.TTL(ctx, "rl:send:"+key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)
}
