package events

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

type KafkaSink struct {
	w *kafka.Writer
}

func NewKafkaSink(brokers, topic string) *KafkaSink {
	w := &kafka.Writer{
		Addr:         kafka.TCP(strings.Split(brokers, ",")...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        true,
	}
	return &KafkaSink{w: w}
}

func (s *KafkaSink) Publish(ctx context.Context, env Envelope) error {
	value, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return s.w.WriteMessages(ctx, kafkaMessage(env, value))
}

func kafkaMessage(env Envelope, value []byte) kafka.Message {
	return kafka.Message{
		Key:   []byte(env.Key),
		Value: value,
		Time:  env.Meta.Time,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(env.Meta.Type)},
			{Key: "event_id", Value: []byte(env.Meta.ID)},
		},
	}
}

func (s *KafkaSink) Close() error { return s.w.Close() }
