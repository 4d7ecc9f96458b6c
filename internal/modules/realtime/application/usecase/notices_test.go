package usecase

import (
	"context"
	"testing"
	"time"

	dashboard "evacumate/internal/modules/dashboard/domain"
	"evacumate/internal/modules/realtime/domain"
)

type captureBroadcaster struct {
	messages []*domain.Message
}

func (c *captureBroadcaster) Broadcast(_ context.Context, msg *domain.Message) {
	c.messages = append(c.messages, msg)
}

func TestSessionNoticesTargetsSession(t *testing.T) {
	t.Parallel()

	capture := &captureBroadcaster{}
	notices := NewSessionNotices(NewBroadcastUseCase(capture))
	at := time.Date(2024, 9, 12, 10, 0, 0, 0, time.UTC)
	notices.now = func() time.Time { return at }

	notice := dashboard.Notice{ID: "req-1", ShelterID: "s1", Text: "Waymo dispatched! ETA: 10 minutes", Kind: dashboard.NoticeSuccess}
	notices.NoticeSet(context.Background(), "sess-1", notice)
	notices.NoticeCleared(context.Background(), "sess-1", "req-1")

	if len(capture.messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(capture.messages))
	}
	set, cleared := capture.messages[0], capture.messages[1]
	if set.Topic != domain.TopicNotices || set.Action != domain.ActionNoticeSet {
		t.Fatalf("unexpected set message: %+v", set)
	}
	if set.TargetSession() != "sess-1" || cleared.TargetSession() != "sess-1" {
		t.Fatalf("expected both messages to target sess-1")
	}
	if got, ok := set.Data.(dashboard.Notice); !ok || got.Text != notice.Text {
		t.Fatalf("expected notice payload, got %#v", set.Data)
	}
	if cleared.Action != domain.ActionNoticeCleared || cleared.ResourceID != "req-1" {
		t.Fatalf("unexpected cleared message: %+v", cleared)
	}
	if !set.Timestamp.Equal(at) {
		t.Fatalf("expected timestamp %v, got %v", at, set.Timestamp)
	}
}
