package notif

import (
	"context"
	"errors"
	"fmt"
	"time"

	"freelancehub/internal/common"
	"freelancehub/internal/events"
	"freelancehub/internal/metrics"
)

// EventSinkObserver publishes notification.created for every stored notification.
type EventSinkObserver struct {
	sink    events.Sink
	timeout time.Duration
}

func NewEventSinkObserver(sink events.Sink) *EventSinkObserver {
	return &EventSinkObserver{sink: sink, timeout: 5 * time.Second}
}

func (o *EventSinkObserver) Name() string {
	return "event_sink_observer"
}

func (o *EventSinkObserver) Update(event common.NotificationEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()

	var errs []error
	for _, n := range event.Notifications {
		env, err := events.NewEnvelope(events.NotificationCreated, n.Recipient, n)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := o.sink.Publish(ctx, env); err != nil {
			errs = append(errs, fmt.Errorf("publish notification %s: %w", n.ID, err))
		}
	}
	return errors.Join(errs...)
}

// MetricsObserver counts stored notifications by kind.
type MetricsObserver struct {
	metrics *metrics.Metrics
}

func NewMetricsObserver(m *metrics.Metrics) *MetricsObserver {
	return &MetricsObserver{metrics: m}
}

func (o *MetricsObserver) Name() string {
	return "metrics_observer"
}

func (o *MetricsObserver) Update(event common.NotificationEvent) error {
	for _, n := range event.Notifications {
		o.metrics.NotificationsCreated.WithLabelValues(string(n.Kind)).Inc()
	}
	return nil
}
