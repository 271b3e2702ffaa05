// Package readstate owns every read-state and delivery-state transition.
package readstate

import (
	"context"
	"log/slog"
	"time"

	"freelancehub/internal/common"
	"freelancehub/internal/events"
	"freelancehub/internal/metrics"
)

// readable lists the delivery states a read receipt may advance from.
var readable = []common.DeliveryState{common.Sent, common.Delivered}

func isReadable(s common.DeliveryState) bool {
	for _, r := range readable {
		if s == r {
			return true
		}
	}
	return false
}

type Tracker struct {
	notifications common.NotificationRepository
	messages      common.MessageRepository
	broadcaster   common.Broadcaster
	sink          events.Sink
	metrics       *metrics.Metrics
}

func NewTracker(
	notifications common.NotificationRepository,
	messages common.MessageRepository,
	broadcaster common.Broadcaster,
	sink events.Sink,
	m *metrics.Metrics,
) *Tracker {
	return &Tracker{
		notifications: notifications,
		messages:      messages,
		broadcaster:   broadcaster,
		sink:          sink,
		metrics:       m,
	}
}

// nextUpdate returns the current time, or 1ms past prev when the clock has not moved
// beyond it, so updatedAt strictly increases on every transition.
func nextUpdate(prev time.Time) time.Time {
	now := common.Clock()
	if !now.After(prev) {
		return prev.Add(time.Millisecond)
	}
	return now
}

func (t *Tracker) setNotificationState(ctx context.Context, owner, id string, state common.ReadState) (*common.Notification, error) {
	notification, err := t.notifications.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if notification.Recipient != owner {
		return nil, common.Forbiddenf("notification %s belongs to another user", id)
	}

	updated, err := t.notifications.SetReadState(ctx, id, state, nextUpdate(notification.UpdatedAt))
	if err != nil {
		return nil, err
	}
	t.metrics.ReadTransitions.WithLabelValues("notification_" + string(state)).Inc()
	return updated, nil
}

func (t *Tracker) MarkNotificationRead(ctx context.Context, owner, id string) (*common.Notification, error) {
	return t.setNotificationState(ctx, owner, id, common.Read)
}

func (t *Tracker) MarkNotificationUnread(ctx context.Context, owner, id string) (*common.Notification, error) {
	return t.setNotificationState(ctx, owner, id, common.Unread)
}

// MarkAllNotificationsRead marks every unread notification of owner as read.
func (t *Tracker) MarkAllNotificationsRead(ctx context.Context, owner string) error {
	changed, err := t.notifications.MarkAllRead(ctx, owner, common.Clock())
	if err != nil {
		return err
	}
	t.metrics.ReadTransitions.WithLabelValues("notification_read").Add(float64(changed))
	return nil
}

// MarkMessageRead moves a message addressed to owner to read. Reading an already
// read message is a no-op that returns it unchanged.
func (t *Tracker) MarkMessageRead(ctx context.Context, owner, id string) (*common.Message, error) {
	message, err := t.messages.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if message.Recipient != owner {
		return nil, common.Forbiddenf("only the recipient can mark message %s as read", id)
	}
	if !isReadable(message.DeliveryState) {
		return message, nil
	}

	changed, err := t.messages.AdvanceDelivery(ctx, []string{id}, owner, readable, common.Seen)
	if err != nil {
		return nil, err
	}
	if len(changed) == 0 {
		// another request read it first
		return t.messages.ByID(ctx, id)
	}

	message.DeliveryState = common.Seen
	t.afterRead(ctx, owner, []*common.Message{message})
	return message, nil
}

// MarkConversationRead advances the messages in fetched that are addressed to owner and
// still unread, updating their state in place, and broadcasts each transition.
func (t *Tracker) MarkConversationRead(ctx context.Context, owner string, fetched []*common.Message) (int, error) {
	var ids []string
	byID := make(map[string]*common.Message)
	for _, m := range fetched {
		if m.Recipient == owner && isReadable(m.DeliveryState) {
			ids = append(ids, m.ID)
			byID[m.ID] = m
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}

	changed, err := t.messages.AdvanceDelivery(ctx, ids, owner, readable, common.Seen)
	if err != nil {
		return 0, err
	}

	read := make([]*common.Message, 0, len(changed))
	for _, id := range changed {
		if m, ok := byID[id]; ok {
			m.DeliveryState = common.Seen
			read = append(read, m)
		}
	}
	t.afterRead(ctx, owner, read)
	return len(read), nil
}

// afterRead pushes and publishes each committed transition. Both are best effort.
func (t *Tracker) afterRead(ctx context.Context, reader string, read []*common.Message) {
	for _, m := range read {
		t.metrics.ReadTransitions.WithLabelValues("message_read").Inc()

		event := common.RealtimeEvent{Type: common.MessageReadEvent, ConversationID: m.ConversationID, Message: m}
		if err := t.broadcaster.Publish(ctx, m.ConversationID, event); err != nil {
			slog.DebugContext(ctx, "read receipt push failed",
				slog.String("conversation_id", m.ConversationID), slog.Any("error", err))
		}

		env, err := events.NewEnvelope(events.MessageRead, m.ConversationID, events.MessageReadPayload{
			MessageID:      m.ID,
			ConversationID: m.ConversationID,
			Reader:         reader,
			ReadAt:         common.Clock(),
		})
		if err == nil {
			err = t.sink.Publish(ctx, env)
		}
		if err != nil {
			slog.WarnContext(ctx, "message.read event not published",
				slog.String("message_id", m.ID), slog.Any("error", err))
		}
	}
}
