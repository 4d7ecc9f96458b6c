package port

import (
	"context"

	"evacumate/internal/modules/realtime/domain"
)

// Broadcaster delivers messages to the connected websocket clients.
type Broadcaster interface {
	Broadcast(ctx context.Context, msg *domain.Message)
}

// TopicHandler handles the messages consumed from one event-bus topic.
type TopicHandler interface {
	Topic() string
	Handle(ctx context.Context, msg *domain.Message) error
}
