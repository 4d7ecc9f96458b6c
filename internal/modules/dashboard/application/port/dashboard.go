package port

import (
	"context"
	"errors"

	"evacumate/internal/modules/dashboard/domain"
)

// ErrViewClosed is returned when an action reaches a dashboard that was unmounted.
var ErrViewClosed = errors.New("dashboard view closed")

// NoticeBroadcaster pushes notice changes to the pages of one session.
type NoticeBroadcaster interface {
	NoticeSet(ctx context.Context, sessionID string, notice domain.Notice)
	NoticeCleared(ctx context.Context, sessionID, noticeID string)
}

// Recorder receives dashboard outcomes for metrics.
type Recorder interface {
	ShelterLoad(outcome string, count int)
	DispatchResolved(outcome string)
	ViewsMounted(count int)
}

const (
	OutcomeSuccess = "success"
	OutcomeEmpty   = "empty"
	OutcomeFailure = "failure"
)
