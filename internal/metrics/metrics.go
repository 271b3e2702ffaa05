// Package metrics defines the Prometheus instruments of the notification service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	NotificationsCreated *prometheus.CounterVec
	FanoutFailures       prometheus.Counter
	MessagesSent         prometheus.Counter
	ReadTransitions      *prometheus.CounterVec
	RealtimeConnections  prometheus.Gauge
	RealtimePublished    *prometheus.CounterVec
	RealtimeDropped      prometheus.Counter
	RateLimited          prometheus.Counter

	gatherer prometheus.Gatherer
}

// New registers the instruments on reg. Pass a fresh registry in tests.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		NotificationsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "freelancehub",
			Name:      "notifications_created_total",
			Help:      "Notifications stored, by kind.",
		}, []string{"kind"}),
		FanoutFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "freelancehub",
			Name:      "notification_fanout_failures_total",
			Help:      "Recipients whose notification could not be stored during a fan-out.",
		}),
		MessagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "freelancehub",
			Name:      "messages_sent_total",
			Help:      "Direct messages persisted.",
		}),
		ReadTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "freelancehub",
			Name:      "read_transitions_total",
			Help:      "Read-state transitions applied, by target.",
		}, []string{"target"}),
		RealtimeConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "freelancehub",
			Name:      "realtime_connections",
			Help:      "Authenticated realtime connections currently open.",
		}),
		RealtimePublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "freelancehub",
			Name:      "realtime_events_published_total",
			Help:      "Realtime events delivered to a connection, by type.",
		}, []string{"type"}),
		RealtimeDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "freelancehub",
			Name:      "realtime_events_dropped_total",
			Help:      "Realtime events dropped because a connection buffer was full.",
		}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "freelancehub",
			Name:      "message_sends_rate_limited_total",
			Help:      "Message sends rejected by the rate limiter.",
		}),
		gatherer: reg,
	}

	reg.MustRegister(
		m.NotificationsCreated,
		m.FanoutFailures,
		m.MessagesSent,
		m.ReadTransitions,
		m.RealtimeConnections,
		m.RealtimePublished,
		m.RealtimeDropped,
		m.RateLimited,
	)
	return m
}

// NewWithRuntime registers the instruments next to the Go runtime and process collectors.
func NewWithRuntime() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	return New(reg)
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
