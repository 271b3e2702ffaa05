package realtime

import (
	"context"
	"os"
	"testing"
	"time"

	"freelancehub/internal/common"
	"freelancehub/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a live Redis when REDIS_TEST_ADDR is set.
func TestRedisBroker_FansOutAcrossHubs(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })

	channel := "realtime-test-" + time.Now().Format("150405.000000")
	verifier := common.NewJWTVerifier(testSecret, "")
	publisher := NewHub(verifier, NewRedisBroker(rdb, channel), metrics.New(prometheus.NewRegistry()), 4)
	broker := NewRedisBroker(rdb, channel)
	subscriber := NewHub(verifier, broker, metrics.New(prometheus.NewRegistry()), 4)

	conn, err := subscriber.Authenticate(token(t, verifier, "bob"))
	require.NoError(t, err)
	require.NoError(t, subscriber.Join(conn, "c1"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = broker.Run(ctx, func(id string, ev common.RealtimeEvent) { subscriber.Deliver(id, ev) })
	}()

	// subscription is asynchronous; keep publishing until one arrives
	require.Eventually(t, func() bool {
		_ = publisher.Publish(ctx, "c1", newEvent("c1"))
		return len(conn.Events()) > 0
	}, 5*time.Second, 50*time.Millisecond)

	ev := <-conn.Events()
	assert.Equal(t, common.NewMessageEvent, ev.Type)
	assert.Equal(t, "m1", ev.Message.ID)
}
