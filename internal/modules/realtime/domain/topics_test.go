package domain

import "testing"

func TestSplitTopic(t *testing.T) {
	cases := map[string][2]string{
		"vehicles.telemetry":       {"vehicles", "telemetry"},
		"fleet.vehicles.telemetry": {"vehicles", "telemetry"},
		"notices":                  {"notices", "unknown"},
		" ":                        {"", "unknown"},
		"dispatch.":                {"dispatch", "unknown"},
	}

	for input, expected := range cases {
		entity, action := SplitTopic(input)
		if entity != expected[0] || action != expected[1] {
			t.Fatalf("SplitTopic(%q) expected %v got [%s %s]", input, expected, entity, action)
		}
	}
}

func TestCustomTopic(t *testing.T) {
	if got := CustomTopic(" notices ", "set"); got != "notices.set" {
		t.Fatalf("expected notices.set, got %q", got)
	}
	if got := CustomTopic("", "set"); got != "" {
		t.Fatalf("expected empty topic, got %q", got)
	}
	if got := ErrorTopic("system"); got != TopicSystemError {
		t.Fatalf("expected %s, got %q", TopicSystemError, got)
	}
}

func TestMessageTargetSession(t *testing.T) {
	var nilMsg *Message
	if nilMsg.TargetSession() != "" {
		t.Fatalf("expected empty target for nil message")
	}
	msg := &Message{Metadata: map[string]string{MetadataSessionID: "sess-1"}}
	if msg.TargetSession() != "sess-1" {
		t.Fatalf("expected sess-1, got %q", msg.TargetSession())
	}
}
