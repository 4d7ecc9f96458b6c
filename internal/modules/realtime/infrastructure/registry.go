package infrastructure

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"evacumate/internal/modules/realtime/application/port"
	"evacumate/internal/modules/realtime/domain"
)

// HandlerRegistry routes consumed messages to the handler registered for
// their event-bus topic.
type HandlerRegistry struct {
	handlers map[string]port.TopicHandler
}

func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{handlers: make(map[string]port.TopicHandler)}
}

func (r *HandlerRegistry) Register(h port.TopicHandler) {
	topic := strings.TrimSpace(h.Topic())
	if topic == "" {
		return
	}
	r.handlers[topic] = h
}

// Topics lists the registered topics in sorted order.
func (r *HandlerRegistry) Topics() []string {
	topics := make([]string, 0, len(r.handlers))
	for topic := range r.handlers {
		topics = append(topics, topic)
	}
	sort.Strings(topics)
	return topics
}

func (r *HandlerRegistry) Dispatch(ctx context.Context, msg *domain.Message) error {
	if msg == nil {
		return nil
	}
	if handler, ok := r.handlers[msg.Topic]; ok {
		return handler.Handle(ctx, msg)
	}
	slog.Debug("no handler for topic", slog.String("topic", msg.Topic))
	return nil
}
