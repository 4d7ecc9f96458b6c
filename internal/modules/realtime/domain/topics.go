package domain

import "strings"

const (
	SystemEntity    = "system"
	NoticeEntity    = "notices"
	TelemetryEntity = "vehicles"

	TopicSystemConnected = SystemEntity + ".connected"
	TopicSystemPong      = SystemEntity + ".pong"
	TopicSystemError     = SystemEntity + ".error"

	// TopicNotices carries dashboard notice set/cleared events.
	TopicNotices = NoticeEntity
	// TopicTelemetry carries vehicle position updates.
	TopicTelemetry = TelemetryEntity + ".telemetry"

	ActionConnected     = "connected"
	ActionPong          = "pong"
	ActionError         = "error"
	ActionState         = "state"
	ActionNoticeSet     = "set"
	ActionNoticeCleared = "cleared"
	ActionTelemetry     = "telemetry"
)

// DefaultTopics are subscribed for every dashboard client on connect.
func DefaultTopics() []string {
	return []string{TopicNotices, TopicTelemetry}
}

// ErrorTopic returns the canonical error topic for the given entity.
func ErrorTopic(entity string) string {
	return CustomTopic(entity, ActionError)
}

// CustomTopic returns the canonical topic for the given entity and action.
func CustomTopic(entity, action string) string {
	cleanEntity := strings.TrimSpace(entity)
	cleanAction := strings.TrimSpace(action)
	if cleanEntity == "" || cleanAction == "" {
		return ""
	}
	return cleanEntity + "." + cleanAction
}

// SplitTopic infers entity and action from a dotted topic such as
// "vehicles.telemetry". A topic without a dot yields action "unknown".
func SplitTopic(topic string) (string, string) {
	parts := strings.Split(strings.TrimSpace(topic), ".")
	if len(parts) >= 2 {
		entity := strings.TrimSpace(parts[len(parts)-2])
		action := strings.TrimSpace(parts[len(parts)-1])
		if entity != "" && action != "" {
			return entity, action
		}
	}
	for i := len(parts) - 1; i >= 0; i-- {
		if part := strings.TrimSpace(parts[i]); part != "" {
			return part, "unknown"
		}
	}
	return "", "unknown"
}
