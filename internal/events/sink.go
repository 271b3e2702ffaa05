package events

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"freelancehub/internal/config"
)

// Sink publishes envelopes to the bus. Publishing is best effort for callers;
// they log a failure and carry on.
type Sink interface {
	Publish(ctx context.Context, env Envelope) error
	Close() error
}

type NopSink struct{}

func (NopSink) Publish(context.Context, Envelope) error { return nil }
func (NopSink) Close() error { return nil }

// NewSink builds the sink selected by EVENTS_DRIVER.
func NewSink(cfg *config.Config, logger *slog.Logger) (Sink, error) {
	switch strings.ToLower(cfg.Events.Driver) {
	case "", "none":
		return NopSink{}, nil
	case "kafka":
		return NewKafkaSink(cfg.Events.KafkaBrokers, cfg.Events.KafkaTopic), nil
	case "amqp", "rabbitmq":
		return NewAMQPSink(cfg.Events.AMQPURL, cfg.Events.AMQPExchange, logger)
	default:
		return nil, fmt.Errorf("unknown events driver %q", cfg.Events.Driver)
	}
}
