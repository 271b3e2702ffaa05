package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.NotificationsCreated.WithLabelValues("job_posted").Add(3)
	m.FanoutFailures.Inc()
	m.RealtimeConnections.Inc()
	m.RealtimeConnections.Inc()
	m.RealtimeConnections.Dec()

	assert.Equal(t, 3.0, testutil.ToFloat64(m.NotificationsCreated.WithLabelValues("job_posted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FanoutFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RealtimeConnections))
}

func TestMetrics_Handler(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.MessagesSent.Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "freelancehub_messages_sent_total 1")
}
