package broker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"evacumate/internal/modules/realtime/domain"
)

// MessageReader is the part of *kafka.Reader used by KafkaConsumer.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type KafkaConsumer struct {
	reader MessageReader
	topic  string
	// retryDelay bounds how fast a failing reader is polled.
	retryDelay time.Duration
}

func NewKafkaConsumer(brokers []string, groupID string, topic string) *KafkaConsumer {
	return newKafkaConsumer(kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		GroupID: groupID,
		Topic:   topic,
	}), topic)
}

func newKafkaConsumer(reader MessageReader, topic string) *KafkaConsumer {
	return &KafkaConsumer{reader: reader, topic: topic, retryDelay: time.Second}
}

// Consume reads until ctx is cancelled. Handler errors are logged and the
// message is skipped.
func (c *KafkaConsumer) Consume(ctx context.Context, handler func(*domain.Message) error) error {
	defer c.reader.Close()
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return ctx.Err()
			}
			slog.Warn("kafka read error", slog.String("topic", c.topic), slog.Any("error", err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retryDelay):
			}
			continue
		}
		msg := decodeMessage(m)
		slog.Debug("kafka message consumed",
			slog.String("topic", m.Topic),
			slog.Int("partition", m.Partition),
			slog.Int64("offset", m.Offset),
			slog.String("entity", msg.Entity),
			slog.String("action", msg.Action),
			slog.String("resourceId", msg.ResourceID),
		)
		if err := handler(msg); err != nil {
			slog.Warn("kafka handler error", slog.String("topic", m.Topic), slog.Any("error", err))
		}
	}
}

type rawEvent struct {
	Entity     string            `json:"entity"`
	Action     string            `json:"action"`
	ResourceID string            `json:"resourceId"`
	Topic      string            `json:"topic"`
	Metadata   map[string]string `json:"metadata"`
	Data       any               `json:"data"`
}

// decodeMessage accepts either the {entity, action, data} envelope or a bare
// JSON object, which becomes the message data. The routing topic is always
// the Kafka topic.
func decodeMessage(m kafka.Message) *domain.Message {
	msg := &domain.Message{Topic: m.Topic, Timestamp: m.Time.UTC()}
	if m.Time.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	entity, action := domain.SplitTopic(m.Topic)

	var event rawEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		msg.Entity = entity
		msg.Action = action
		msg.Data = string(m.Value)
		return msg
	}

	if event.Data == nil && event.Entity == "" && event.Action == "" {
		var bare map[string]any
		if err := json.Unmarshal(m.Value, &bare); err == nil {
			msg.Data = bare
		}
	} else {
		msg.Data = event.Data
	}
	msg.Entity = firstNonEmpty(event.Entity, entity)
	msg.Action = firstNonEmpty(event.Action, action)
	msg.ResourceID = strings.TrimSpace(event.ResourceID)
	msg.Metadata = event.Metadata
	if msg.ResourceID == "" && len(m.Key) > 0 {
		msg.ResourceID = string(m.Key)
	}
	return msg
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
