package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"evacumate/internal/modules/shelters/application/port"
	shelters "evacumate/internal/modules/shelters/domain"
)

const (
	publishTimeout = 5 * time.Second
	batchTimeout   = 5 * time.Millisecond
)

// MessageWriter is the part of *kafka.Writer used by DispatchProducer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// DispatchProducer publishes one event per resolved dispatch, keyed by
// shelter id so events for a shelter stay ordered.
type DispatchProducer struct {
	writer MessageWriter
	topic  string
}

// NewDispatchPublisher returns a Kafka-backed publisher, or a no-op one
// when no brokers are configured.
func NewDispatchPublisher(brokers []string, topic string) port.DispatchEventPublisher {
	topic = strings.TrimSpace(topic)
	if len(brokers) == 0 || topic == "" {
		slog.Info("dispatch events disabled: no brokers configured")
		return NoopPublisher{}
	}
	return NewDispatchProducer(newDispatchWriter(brokers, topic), topic)
}

// newDispatchWriter flushes each event on its own. Dispatches are rare and a
// caller waits on every write, so the writer's default one second batch
// window would only add latency.
func newDispatchWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchSize:              1,
		BatchTimeout:           batchTimeout,
		WriteTimeout:           publishTimeout,
		AllowAutoTopicCreation: true,
	}
}

func NewDispatchProducer(writer MessageWriter, topic string) *DispatchProducer {
	return &DispatchProducer{writer: writer, topic: topic}
}

func (p *DispatchProducer) PublishDispatch(ctx context.Context, event shelters.DispatchEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal dispatch event: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.ShelterID),
		Value: payload,
		Time:  event.At,
		Headers: []kafka.Header{
			{Key: "requestId", Value: []byte(event.RequestID)},
		},
	})
	if err != nil {
		return fmt.Errorf("publish dispatch event to %s: %w", p.topic, err)
	}
	slog.Debug("dispatch event published", slog.String("topic", p.topic), slog.String("requestId", event.RequestID), slog.Bool("ok", event.OK))
	return nil
}

func (p *DispatchProducer) Close() error {
	return p.writer.Close()
}

type NoopPublisher struct{}

func (NoopPublisher) PublishDispatch(context.Context, shelters.DispatchEvent) error { return nil }

var (
	_ port.DispatchEventPublisher = (*DispatchProducer)(nil)
	_ port.DispatchEventPublisher = NoopPublisher{}
)
