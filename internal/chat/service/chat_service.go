package service

import (
	"context"
	"log/slog"

	"freelancehub/internal/common"
	"freelancehub/internal/events"
	"freelancehub/internal/metrics"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ChatService defines the interface exposed to the handler layer
type ChatService interface {
	Send(ctx context.Context, sender, recipient, content, conversationID string) (*common.Message, error)
	FetchConversation(ctx context.Context, requester, conversationID string, page common.Page) ([]*common.Message, int64, error)
	ListConversations(ctx context.Context, requester string, page common.Page) ([]*common.ConversationSummary, int64, error)
	MarkMessageRead(ctx context.Context, owner, id string) (*common.Message, error)
	DeleteMessage(ctx context.Context, participant, id string) error
}

// Notifier creates the companion notification of a sent message.
type Notifier interface {
	Notify(ctx context.Context, recipient string, kind common.NotificationKind, message string, refs common.SubjectRefs) (*common.Notification, error)
}

// ReadTracker owns every delivery-state transition.
type ReadTracker interface {
	MarkMessageRead(ctx context.Context, owner, id string) (*common.Message, error)
	MarkConversationRead(ctx context.Context, owner string, fetched []*common.Message) (int, error)
}

type chatService struct {
	messages    common.MessageRepository
	users       common.UserDirectory
	notifier    Notifier
	tracker     ReadTracker
	broadcaster common.Broadcaster
	sink        events.Sink
	metrics     *metrics.Metrics
}

// Constructor used in DI/wire
func NewChatService(
	messages common.MessageRepository,
	users common.UserDirectory,
	notifier Notifier,
	tracker ReadTracker,
	broadcaster common.Broadcaster,
	sink events.Sink,
	m *metrics.Metrics,
) ChatService {
	return &chatService{
		messages:    messages,
		users:       users,
		notifier:    notifier,
		tracker:     tracker,
		broadcaster: broadcaster,
		sink:        sink,
		metrics:     m,
	}
}

// Send persists a message from sender to recipient. An empty conversationID starts a
// new thread. The companion notification and the realtime push are best effort once
// the message is stored. Cancelling ctx after validation does not abort the send.
func (s *chatService) Send(ctx context.Context, sender, recipient, content, conversationID string) (*common.Message, error) {
	if err := common.ValidateUserID("sender", sender); err != nil {
		return nil, err
	}
	if err := common.ValidateUserID("recipient_id", recipient); err != nil {
		return nil, err
	}
	content, err := common.ValidateContent(content)
	if err != nil {
		return nil, err
	}
	// Once accepted, the message and its companion notification outlive the request.
	ctx = context.WithoutCancel(ctx)

	if _, err := s.users.ByID(ctx, recipient); err != nil {
		return nil, err
	}

	if conversationID == "" {
		conversationID = primitive.NewObjectID().Hex()
	}

	msg := &common.Message{
		ConversationID: conversationID,
		Sender:         sender,
		Recipient:      recipient,
		Content:        content,
		DeliveryState:  common.Sent,
		CreatedAt:      common.Clock(),
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}
	s.metrics.MessagesSent.Inc()

	if _, err := s.notifier.Notify(ctx, recipient, common.MessageReceivedKind,
		"New message from "+s.displayName(ctx, sender), common.SubjectRefs{Message: msg.ID}); err != nil {
		slog.WarnContext(ctx, "message notification not created",
			slog.String("message_id", msg.ID), slog.Any("error", err))
	}

	event := common.RealtimeEvent{Type: common.NewMessageEvent, ConversationID: conversationID, Message: msg}
	if err := s.broadcaster.Publish(ctx, conversationID, event); err != nil {
		slog.DebugContext(ctx, "message push failed",
			slog.String("conversation_id", conversationID), slog.Any("error", err))
	}

	env, err := events.NewEnvelope(events.MessageCreated, conversationID, msg)
	if err == nil {
		err = s.sink.Publish(ctx, env)
	}
	if err != nil {
		slog.WarnContext(ctx, "message.created event not published",
			slog.String("message_id", msg.ID), slog.Any("error", err))
	}

	return msg, nil
}

func (s *chatService) displayName(ctx context.Context, userID string) string {
	user, err := s.users.ByID(ctx, userID)
	if err != nil || user.Username == "" {
		return userID
	}
	return user.Username
}

// FetchConversation returns a page of the requester's messages in conversationID,
// newest first. Messages addressed to the requester are marked read as a side effect
// and are returned in their new state.
func (s *chatService) FetchConversation(ctx context.Context, requester, conversationID string, page common.Page) ([]*common.Message, int64, error) {
	if conversationID == "" {
		return nil, 0, common.Validationf("conversation ID is required")
	}

	msgs, total, err := s.messages.ByConversation(ctx, conversationID, requester, page)
	if err != nil {
		return nil, 0, err
	}

	if _, err := s.tracker.MarkConversationRead(ctx, requester, msgs); err != nil {
		slog.WarnContext(ctx, "conversation read receipts failed",
			slog.String("conversation_id", conversationID), slog.Any("error", err))
	}
	return msgs, total, nil
}

func (s *chatService) ListConversations(ctx context.Context, requester string, page common.Page) ([]*common.ConversationSummary, int64, error) {
	return s.messages.Conversations(ctx, requester, page)
}

func (s *chatService) MarkMessageRead(ctx context.Context, owner, id string) (*common.Message, error) {
	return s.tracker.MarkMessageRead(ctx, owner, id)
}

// DeleteMessage removes a message either participant can see.
func (s *chatService) DeleteMessage(ctx context.Context, participant, id string) error {
	msg, err := s.messages.ByID(ctx, id)
	if err != nil {
		return err
	}
	if !msg.IsParticipant(participant) {
		return common.Forbiddenf("message %s belongs to another conversation", id)
	}
	if err := s.messages.Delete(ctx, id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "message deleted", slog.String("message_id", id), slog.String("by", participant))
	return nil
}
