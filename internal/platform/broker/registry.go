package broker

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"evacumate/internal/modules/realtime/domain"
	"evacumate/internal/modules/realtime/infrastructure"
)

// StartKafkaConsumers starts one consumer per topic feeding the registry.
// The returned WaitGroup completes once every consumer has stopped.
func StartKafkaConsumers(
	ctx context.Context,
	registry *infrastructure.HandlerRegistry,
	brokers []string,
	groupID string,
	topics []string,
) *sync.WaitGroup {
	var wg sync.WaitGroup
	if len(brokers) == 0 {
		// kafka.NewReader must not be called with an empty broker list.
		slog.Info("kafka consumers disabled: no brokers configured")
		return &wg
	}
	for _, topic := range topics {
		topic = strings.TrimSpace(topic)
		if topic == "" {
			continue
		}
		wg.Add(1)
		go func(tp string) {
			defer wg.Done()
			consumer := NewKafkaConsumer(brokers, groupID, tp)
			slog.Info("kafka consumer started", slog.String("topic", tp), slog.String("groupId", groupID))
			err := consumer.Consume(ctx, func(msg *domain.Message) error {
				return registry.Dispatch(ctx, msg)
			})
			slog.Info("kafka consumer stopped", slog.String("topic", tp), slog.Any("reason", err))
		}(topic)
	}
	return &wg
}
