package notif

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"freelancehub/internal/common"
	"freelancehub/internal/events"
	"freelancehub/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockSink struct {
	mock.Mock
}

func (m *MockSink) Publish(ctx context.Context, env events.Envelope) error {
	return m.Called(ctx, env).Error(0)
}

func (m *MockSink) Close() error {
	return m.Called().Error(0)
}

type failingObserver struct {
	calls atomic.Int32
}

func (f *failingObserver) Name() string { return "failing" }

func (f *failingObserver) Update(common.NotificationEvent) error {
	f.calls.Add(1)
	return errors.New("downstream unavailable")
}

func sampleEvent() common.NotificationEvent {
	return common.NotificationEvent{Notifications: []*common.Notification{
		{ID: "n1", Recipient: "alice", Kind: common.JobPostedKind, Message: "a"},
		{ID: "n2", Recipient: "bob", Kind: common.JobPostedKind, Message: "b"},
	}}
}

func TestNotificationManager_FailingObserverDoesNotStopOthers(t *testing.T) {
	nm := NewNotificationManager(1, 10)
	failing := &failingObserver{}
	capture := &captureObserver{}
	nm.Subscribe(failing)
	nm.Subscribe(capture)

	nm.Notify(sampleEvent())
	nm.Shutdown()

	assert.Equal(t, int32(1), failing.calls.Load())
	assert.Len(t, capture.notifications(), 2)
}

func TestNotificationManager_Unsubscribe(t *testing.T) {
	nm := NewNotificationManager(1, 10)
	capture := &captureObserver{}
	nm.Subscribe(capture)
	nm.Unsubscribe(capture)

	nm.NotifyAsync(sampleEvent())
	nm.Shutdown()

	assert.Empty(t, capture.notifications())
}

func TestNotificationManager_ShutdownDrainsAndIsIdempotent(t *testing.T) {
	nm := NewNotificationManager(3, 100)
	capture := &captureObserver{}
	nm.Subscribe(capture)

	for i := 0; i < 20; i++ {
		nm.NotifyAsync(sampleEvent())
	}
	nm.Shutdown()
	nm.Shutdown()
	nm.NotifyAsync(sampleEvent())

	assert.Len(t, capture.notifications(), 40)
}

func TestEventSinkObserver(t *testing.T) {
	sink := &MockSink{}
	sink.On("Publish", mock.Anything, mock.MatchedBy(func(env events.Envelope) bool {
		return env.Meta.Type == events.NotificationCreated && (env.Key == "alice" || env.Key == "bob")
	})).Return(nil).Twice()

	obs := NewEventSinkObserver(sink)
	assert.Equal(t, "event_sink_observer", obs.Name())
	assert.NoError(t, obs.Update(sampleEvent()))
	sink.AssertExpectations(t)
}

func TestEventSinkObserver_JoinsErrors(t *testing.T) {
	sink := &MockSink{}
	sink.On("Publish", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	err := NewEventSinkObserver(sink).Update(sampleEvent())
	assert.ErrorContains(t, err, "n1")
	assert.ErrorContains(t, err, "n2")
}

func TestMetricsObserver(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	obs := NewMetricsObserver(m)

	assert.NoError(t, obs.Update(sampleEvent()))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.NotificationsCreated.WithLabelValues("job_posted")))
}
