package common

import (
	"context" // provides context for cancellation, deletion, update anything
	"time"
)

type Observer interface {
	Update(event NotificationEvent) error
	Name() string
}

type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	Notify(event NotificationEvent)
	NotifyAsync(event NotificationEvent)
}

// NotificationRepository is the document-store contract for notifications.
// Lookups that match nothing return an error wrapping ErrNotFound.
type NotificationRepository interface {
	Create(ctx context.Context, notification *Notification) error
	// CreateMany inserts every record independently and returns how many were stored.
	// Records that were not stored are left with an empty ID.
	CreateMany(ctx context.Context, notifications []*Notification) (int, error)
	ByID(ctx context.Context, id string) (*Notification, error)
	ByRecipient(ctx context.Context, recipient string, filter NotificationFilter, page Page) ([]*Notification, int64, error)
	UnreadCount(ctx context.Context, recipient string) (int64, error)
	SetReadState(ctx context.Context, id string, state ReadState, at time.Time) (*Notification, error)
	MarkAllRead(ctx context.Context, recipient string, at time.Time) (int64, error)
	Delete(ctx context.Context, id string) error
	DeleteByRecipient(ctx context.Context, recipient string) (int64, error)
}

type MessageRepository interface {
	Create(ctx context.Context, message *Message) error
	ByID(ctx context.Context, id string) (*Message, error)
	// ByConversation returns messages of conversationID that participant sent or received, newest first.
	ByConversation(ctx context.Context, conversationID, participant string, page Page) ([]*Message, int64, error)
	// Conversations groups participant's messages by conversation, most recent activity first.
	Conversations(ctx context.Context, participant string, page Page) ([]*ConversationSummary, int64, error)
	// AdvanceDelivery moves the listed messages addressed to recipient from one of the
	// states in from to next, and returns the ids that actually changed.
	AdvanceDelivery(ctx context.Context, ids []string, recipient string, from []DeliveryState, next DeliveryState) ([]string, error)
	Delete(ctx context.Context, id string) error
}

// UserDirectory is the read-only view of accounts.
type UserDirectory interface {
	ByID(ctx context.Context, id string) (*User, error)
	// IDs evaluates q once and returns the matching user ids.
	IDs(ctx context.Context, q AudienceQuery) ([]string, error)
}

// TokenVerifier is the auth provider's verify(token) contract.
type TokenVerifier interface {
	Verify(token string) (*Identity, error)
}

// Broadcaster pushes an event to connections joined to a conversation, best effort.
type Broadcaster interface {
	Publish(ctx context.Context, conversationID string, event RealtimeEvent) error
}
