package handler

import (
	"context"
	"log/slog"
	"strings"

	"evacumate/internal/modules/realtime/application/port"
	"evacumate/internal/modules/realtime/application/usecase"
	"evacumate/internal/modules/realtime/domain"
)

// TelemetryHandler forwards vehicle telemetry consumed from one event-bus
// topic to every client subscribed to the telemetry topic.
type TelemetryHandler struct {
	kafkaTopic  string
	broadcastUC *usecase.BroadcastUseCase
}

func NewTelemetryHandler(kafkaTopic string, broadcastUC *usecase.BroadcastUseCase) *TelemetryHandler {
	return &TelemetryHandler{kafkaTopic: strings.TrimSpace(kafkaTopic), broadcastUC: broadcastUC}
}

func (h *TelemetryHandler) Topic() string { return h.kafkaTopic }

func (h *TelemetryHandler) Handle(ctx context.Context, msg *domain.Message) error {
	if msg == nil {
		return nil
	}
	out := *msg
	out.Topic = domain.TopicTelemetry
	out.Entity = domain.TelemetryEntity
	out.Action = domain.ActionTelemetry
	if out.ResourceID == "" {
		out.ResourceID = vehicleID(msg.Data)
	}
	// Telemetry is fleet-wide; a session target from the producer is dropped.
	if out.Metadata != nil {
		metadata := make(map[string]string, len(out.Metadata))
		for key, value := range out.Metadata {
			if key == domain.MetadataSessionID || key == domain.MetadataUserID {
				continue
			}
			metadata[key] = value
		}
		out.Metadata = metadata
	}
	slog.Debug("telemetry forwarded", slog.String("kafkaTopic", h.kafkaTopic), slog.String("vehicleId", out.ResourceID))
	h.broadcastUC.Execute(ctx, &out)
	return nil
}

func vehicleID(data any) string {
	record, ok := data.(map[string]any)
	if !ok {
		return ""
	}
	for _, key := range []string{"vehicleId", "vehicle_id", "id"} {
		if value, ok := record[key].(string); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

var _ port.TopicHandler = (*TelemetryHandler)(nil)
