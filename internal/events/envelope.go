// Package events publishes domain events to the message bus and defines their schema.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"freelancehub/internal/common"

	"github.com/google/uuid"
)

const producer = "notifs-svc"

// Event types, name and version.
const (
	NotificationCreated   = "notification.created.v1"
	MessageCreated        = "message.created.v1"
	MessageRead           = "message.read.v1"
	NotificationRequested = "notification.requested.v1"
)

type Meta struct {
	// Unique event ID
	ID string `json:"id"`
	// Event name and version, e.g. message.created.v1
	Type string `json:"type"`
	// Emitting service
	Producer string `json:"producer,omitempty"`
	// Timestamp when the event was emitted
	Time          time.Time `json:"time"`
	CorrelationID *string   `json:"correlation_id,omitempty"`
}

type Envelope struct {
	Meta Meta `json:"meta"`
	// Key partitions the event on the bus; recipient or conversation id.
	Key  string          `json:"-"`
	Data json.RawMessage `json:"data"`
}

func NewEnvelope(eventType, key string, data any) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s: %w", eventType, err)
	}
	return Envelope{
		Meta: Meta{
			ID:       uuid.NewString(),
			Type:     eventType,
			Producer: producer,
			Time:     common.Clock(),
		},
		Key:  key,
		Data: raw,
	}, nil
}

// Decode unmarshals the payload into v.
func (e Envelope) Decode(v any) error {
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("decode %s: %w", e.Meta.Type, err)
	}
	return nil
}

// NotifyRequest is the payload of notification.requested.v1, consumed from other services.
// Exactly one of Recipient, Recipients or Audience addresses it.
type NotifyRequest struct {
	Recipient  string                  `json:"recipient,omitempty"`
	Recipients []string                `json:"recipients,omitempty"`
	Audience   *common.AudienceQuery   `json:"audience,omitempty"`
	Kind       common.NotificationKind `json:"kind"`
	Message    string                  `json:"message"`
	Refs       common.SubjectRefs      `json:"refs"`
}

// MessageReadPayload is the payload of message.read.v1.
type MessageReadPayload struct {
	MessageID      string    `json:"message_id"`
	ConversationID string    `json:"conversation_id"`
	Reader         string    `json:"reader"`
	ReadAt         time.Time `json:"read_at"`
}
