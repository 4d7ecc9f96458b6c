package domain

import "time"

// Message is the envelope written to websocket clients and read from the
// event bus. Metadata keys userId and sessionId narrow delivery to the
// matching clients.
type Message struct {
	Topic      string            `json:"topic"`
	Entity     string            `json:"entity"`
	Action     string            `json:"action"`
	ResourceID string            `json:"resourceId,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Data       any               `json:"data,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

const (
	MetadataUserID    = "userId"
	MetadataSessionID = "sessionId"
)

// TargetSession returns the session the message is addressed to, if any.
func (m *Message) TargetSession() string {
	if m == nil || m.Metadata == nil {
		return ""
	}
	return m.Metadata[MetadataSessionID]
}
