package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"freelancehub/internal/common"

	"github.com/redis/go-redis/v9"
)

// Broker carries published events between replicas.
type Broker interface {
	Publish(ctx context.Context, conversationID string, event common.RealtimeEvent) error
	// Run delivers every event published by any replica until ctx is done.
	Run(ctx context.Context, deliver func(conversationID string, event common.RealtimeEvent)) error
}

type brokerMessage struct {
	ConversationID string               `json:"conversation_id"`
	Event          common.RealtimeEvent `json:"event"`
}

// RedisBroker fans events out over one Redis pub/sub channel.
type RedisBroker struct {
	rdb     *redis.Client
	channel string
}

func NewRedisBroker(rdb *redis.Client, channel string) *RedisBroker {
	return &RedisBroker{rdb: rdb, channel: channel}
}

func (b *RedisBroker) Publish(ctx context.Context, conversationID string, event common.RealtimeEvent) error {
	payload, err := json.Marshal(brokerMessage{ConversationID: conversationID, Event: event})
	if err != nil {
		return err
	}
	if err := b.rdb.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

func (b *RedisBroker) Run(ctx context.Context, deliver func(string, common.RealtimeEvent)) error {
	sub := b.rdb.Subscribe(ctx, b.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("redis subscribe: %w", err)
	}
	slog.Info("realtime broker subscribed", slog.String("channel", b.channel))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			conversationID, event, err := decodeBrokerMessage(msg.Payload)
			if err != nil {
				slog.Warn("invalid realtime broker message", slog.Any("error", err))
				continue
			}
			deliver(conversationID, event)
		}
	}
}

func decodeBrokerMessage(payload string) (string, common.RealtimeEvent, error) {
	var m brokerMessage
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		return "", common.RealtimeEvent{}, err
	}
	if m.ConversationID == "" {
		return "", common.RealtimeEvent{}, fmt.Errorf("missing conversation_id")
	}
	return m.ConversationID, m.Event, nil
}
