package notif

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"freelancehub/internal/common"
	"freelancehub/internal/events"

	"github.com/segmentio/kafka-go"
)

// Dispatch routes a decoded request to Notify, NotifyMany or NotifyAudience and
// returns how many notifications were stored.
func Dispatch(ctx context.Context, emitter *Emitter, req events.NotifyRequest) (int, error) {
	switch {
	case req.Audience != nil:
		return emitter.NotifyAudience(ctx, *req.Audience, req.Kind, req.Message, req.Refs)
	case len(req.Recipients) > 0:
		return emitter.NotifyMany(ctx, req.Recipients, req.Kind, req.Message, req.Refs)
	case req.Recipient != "":
		if _, err := emitter.Notify(ctx, req.Recipient, req.Kind, req.Message, req.Refs); err != nil {
			return 0, err
		}
		return 1, nil
	default:
		return 0, common.Validationf("request has no recipient, recipients or audience")
	}
}

// HandleMessage decodes one bus message and dispatches it. Unknown event types are ignored.
func HandleMessage(ctx context.Context, emitter *Emitter, value []byte) error {
	var env events.Envelope
	if err := json.Unmarshal(value, &env); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	if env.Meta.Type != events.NotificationRequested {
		slog.DebugContext(ctx, "ignoring event", slog.String("type", env.Meta.Type))
		return nil
	}

	var req events.NotifyRequest
	if err := env.Decode(&req); err != nil {
		return err
	}

	count, err := Dispatch(ctx, emitter, req)
	if err != nil {
		return fmt.Errorf("dispatch %s: %w", env.Meta.ID, err)
	}
	slog.DebugContext(ctx, "notification request handled",
		slog.String("event_id", env.Meta.ID),
		slog.String("kind", string(req.Kind)),
		slog.Int("stored", count))
	return nil
}

// Consumer reads notification requests other services publish to Kafka.
type Consumer struct {
	reader  *kafka.Reader
	emitter *Emitter
}

func NewConsumer(brokers, groupID, topic string, emitter *Emitter) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:        strings.Split(brokers, ","),
			GroupID:        groupID,
			Topic:          topic,
			MinBytes:       10e3,
			MaxBytes:       10e6,
			CommitInterval: time.Second,
		}),
		emitter: emitter,
	}
}

// Run blocks until ctx is cancelled. A message that fails to dispatch is logged and
// committed; the emitter has no idempotence so redelivery would duplicate records.
func (c *Consumer) Run(ctx context.Context) error {
	defer func() {
		_ = c.reader.Close()
	}()

	cfg := c.reader.Config()
	slog.Info("kafka consumer started",
		slog.String("group", cfg.GroupID), slog.String("topic", cfg.Topic))

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				slog.Info("kafka consumer shutting down")
				return nil
			}
			slog.Warn("kafka fetch failed", slog.Any("error", err))
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return nil
			}
			continue
		}

		if err := HandleMessage(ctx, c.emitter, m.Value); err != nil {
			slog.Warn("kafka message handling failed",
				slog.Int("partition", m.Partition), slog.Int64("offset", m.Offset), slog.Any("error", err))
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil {
			slog.Warn("kafka commit failed", slog.Any("error", err))
		}
	}
}
