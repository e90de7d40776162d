package events

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

const (
	HeaderEventType = "event_type"
	HeaderEventID   = "event_id"
)

// MessageWriter is the subset of *kafka.Writer used by the publisher.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher forwards bus events to a Kafka topic.
type KafkaPublisher struct {
	writer  MessageWriter
	timeout time.Duration
	logger  *zerolog.Logger
}

// NewKafkaWriter builds a writer for the configured brokers and topic.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
}

func NewKafkaPublisher(writer MessageWriter, timeout time.Duration, logger *zerolog.Logger) *KafkaPublisher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &KafkaPublisher{writer: writer, timeout: timeout, logger: logger}
}

// Send writes one event and waits for the broker acknowledgement.
func (p *KafkaPublisher) Send(ctx context.Context, event *Event) error {
	if event == nil {
		return errors.New("nil event")
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, ToMessage(event)); err != nil {
		return err
	}

	p.logger.Debug().Str("event_id", event.ID).Str("event_type", event.Type).Msg("Event sent to Kafka")
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// ToMessage keys the message by the event's partition key so all events of one
// booking (or comments of one item) stay ordered. Unkeyed events fall back to the id.
func ToMessage(event *Event) kafka.Message {
	key := event.Key
	if key == "" {
		key = event.ID
	}
	return kafka.Message{
		Key:   []byte(key),
		Value: event.Payload,
		Time:  event.CreatedAt,
		Headers: []kafka.Header{
			{Key: HeaderEventType, Value: []byte(event.Type)},
			{Key: HeaderEventID, Value: []byte(event.ID)},
		},
	}
}
