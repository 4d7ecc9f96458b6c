package usecase

import (
	"context"
	"time"

	dashboardport "evacumate/internal/modules/dashboard/application/port"
	dashboard "evacumate/internal/modules/dashboard/domain"
	"evacumate/internal/modules/realtime/domain"
)

// SessionNotices pushes dashboard notice changes to the websocket clients of
// the owning session only.
type SessionNotices struct {
	broadcast *BroadcastUseCase
	now       func() time.Time
}

func NewSessionNotices(broadcast *BroadcastUseCase) *SessionNotices {
	return &SessionNotices{broadcast: broadcast, now: time.Now}
}

func (n *SessionNotices) NoticeSet(ctx context.Context, sessionID string, notice dashboard.Notice) {
	n.broadcast.Execute(ctx, &domain.Message{
		Topic:      domain.TopicNotices,
		Entity:     domain.NoticeEntity,
		Action:     domain.ActionNoticeSet,
		ResourceID: notice.ID,
		Metadata:   map[string]string{domain.MetadataSessionID: sessionID},
		Data:       notice,
		Timestamp:  n.now().UTC(),
	})
}

func (n *SessionNotices) NoticeCleared(ctx context.Context, sessionID, noticeID string) {
	n.broadcast.Execute(ctx, &domain.Message{
		Topic:      domain.TopicNotices,
		Entity:     domain.NoticeEntity,
		Action:     domain.ActionNoticeCleared,
		ResourceID: noticeID,
		Metadata:   map[string]string{domain.MetadataSessionID: sessionID},
		Data:       map[string]string{"id": noticeID},
		Timestamp:  n.now().UTC(),
	})
}

var _ dashboardport.NoticeBroadcaster = (*SessionNotices)(nil)
