package events

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/rabbitmq/amqp091-go"
)

// AMQPSink publishes to a durable topic exchange, routing by event type.
type AMQPSink struct {
	conn     *amqp091.Connection
	exchange string
	log      *slog.Logger
}

func NewAMQPSink(url, exchange string, logger *slog.Logger) (*AMQPSink, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	defer ch.Close()
	if err := ch.ExchangeDeclare(
		exchange, "topic", true, false, false, false, nil,
	); err != nil {
		conn.Close()
		return nil, err
	}

	return &AMQPSink{
		conn:     conn,
		exchange: exchange,
		log:      logger,
	}, nil
}

func (s *AMQPSink) Publish(ctx context.Context, env Envelope) error {
	ch, err := s.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	body, err := json.Marshal(env)
	if err != nil {
		return err
	}

	err = ch.PublishWithContext(
		ctx, s.exchange, env.Meta.Type, false, false,
		amqpPublishing(env, body),
	)
	if err == nil {
		s.log.Debug("published", slog.String("type", env.Meta.Type), slog.String("exchange", s.exchange))
	}
	return err
}

func amqpPublishing(env Envelope, body []byte) amqp091.Publishing {
	return amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    env.Meta.ID,
		Type:         env.Meta.Type,
		Timestamp:    env.Meta.Time,
		Headers:      amqp091.Table{"key": env.Key},
		Body:         body,
	}
}

func (s *AMQPSink) Close() error {
	return s.conn.Close()
}
