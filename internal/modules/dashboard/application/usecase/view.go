package usecase

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"evacumate/internal/modules/dashboard/application/port"
	"evacumate/internal/modules/dashboard/domain"
	shelterport "evacumate/internal/modules/shelters/application/port"
	shelters "evacumate/internal/modules/shelters/domain"
)

const DefaultNoticeTTL = 5 * time.Second

// ViewDeps are the collaborators shared by every mounted dashboard.
// Events, Notices and Metrics are optional.
type ViewDeps struct {
	Shelters  shelterport.ShelterRepository
	Dispatch  shelterport.DispatchService
	Events    shelterport.DispatchEventPublisher
	Notices   port.NoticeBroadcaster
	Metrics   port.Recorder
	Clock     Clock
	NoticeTTL time.Duration
	NewID     func() string
}

func (d ViewDeps) withDefaults() ViewDeps {
	if d.Clock == nil {
		d.Clock = SystemClock()
	}
	if d.NoticeTTL <= 0 {
		d.NoticeTTL = DefaultNoticeTTL
	}
	if d.NewID == nil {
		d.NewID = uuid.NewString
	}
	return d
}

// Snapshot is what a page renders for one dashboard.
type Snapshot struct {
	State    domain.ViewState   `json:"state"`
	Shelters []shelters.Shelter `json:"shelters"`
	Notice   *domain.Notice     `json:"notice,omitempty"`
}

// DispatchOutcome is the result of one dispatch action. Displayed is false
// when a newer action already owns the notice slot.
type DispatchOutcome struct {
	Notice    domain.Notice `json:"notice"`
	Displayed bool          `json:"displayed"`
}

// View is the per-session dashboard. The shelter list is fetched once per
// mount; the notice slot holds at most one notice, owned by the most
// recently started dispatch that has resolved.
type View struct {
	sessionID string
	userID    string
	deps      ViewDeps

	ctx    context.Context
	cancel context.CancelFunc

	loadOnce sync.Once
	loaded   chan struct{}

	mu       sync.Mutex
	state    domain.ViewState
	snapshot shelters.Snapshot
	seq      uint64
	shownSeq uint64
	notice   *domain.Notice
	timer    Timer
	closed   bool
	lastSeen time.Time

	// pushMu is taken before mu is released and held through the broadcast,
	// so pushes leave in the order the notice slot changed.
	pushMu sync.Mutex
}

func NewView(sessionID, userID string, deps ViewDeps) *View {
	deps = deps.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &View{
		sessionID: strings.TrimSpace(sessionID),
		userID:    strings.TrimSpace(userID),
		deps:      deps,
		ctx:       ctx,
		cancel:    cancel,
		loaded:    make(chan struct{}),
		state:     domain.ViewLoading,
		lastSeen:  deps.Clock.Now(),
	}
}

func (v *View) SessionID() string { return v.sessionID }

// Mount starts the shelter load the first time it is called. Later calls
// only refresh the idle timestamp.
func (v *View) Mount() {
	v.touch()
	v.loadOnce.Do(func() {
		go v.loadShelters()
	})
}

// Wait blocks until the shelter list settles, ctx ends, or max elapses.
// It reports whether the list is ready.
func (v *View) Wait(ctx context.Context, max time.Duration) bool {
	if max <= 0 {
		select {
		case <-v.loaded:
			return true
		default:
			return false
		}
	}
	timer := time.NewTimer(max)
	defer timer.Stop()
	select {
	case <-v.loaded:
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}

// loadShelters settles the list. Every failure is logged and leaves an empty
// list so the page shows "no shelters" rather than an error.
func (v *View) loadShelters() {
	defer close(v.loaded)

	slog.Info("dashboard shelters load start", slog.String("sessionId", v.sessionID))
	list, err := v.deps.Shelters.List(v.ctx)

	var (
		snapshot shelters.Snapshot
		outcome  string
	)
	if err != nil {
		slog.Error("dashboard shelters load failed", slog.String("sessionId", v.sessionID), slog.Any("error", err))
		snapshot, _ = shelters.NewSnapshot(nil)
		outcome = port.OutcomeFailure
	} else {
		var duplicates []string
		snapshot, duplicates = shelters.NewSnapshot(list)
		if len(duplicates) > 0 {
			slog.Warn("dashboard shelters duplicate ids dropped", slog.String("sessionId", v.sessionID), slog.Any("ids", duplicates))
		}
		outcome = port.OutcomeSuccess
		if snapshot.Empty() {
			outcome = port.OutcomeEmpty
		}
	}

	v.mu.Lock()
	v.snapshot = snapshot
	v.state = domain.ViewReady
	v.mu.Unlock()

	if v.deps.Metrics != nil {
		v.deps.Metrics.ShelterLoad(outcome, snapshot.Len())
	}
	slog.Info("dashboard shelters load settled", slog.String("sessionId", v.sessionID), slog.String("outcome", outcome), slog.Int("count", snapshot.Len()))
}

// Snapshot returns the current render state.
func (v *View) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	snap := Snapshot{State: v.state, Shelters: v.snapshot.Items()}
	if v.notice != nil {
		copied := *v.notice
		snap.Notice = &copied
	}
	return snap
}

// CurrentNotice returns the live notice, if any.
func (v *View) CurrentNotice() (domain.Notice, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.notice == nil {
		return domain.Notice{}, false
	}
	return *v.notice, true
}

// RequestDispatch asks for a vehicle to shelterID. The id is not checked
// against the loaded list and may be sent before the list has loaded.
// Overlapping calls are not serialized; the notice of the most recently
// started call wins, and the clear runs NoticeTTL after that call resolves.
func (v *View) RequestDispatch(ctx context.Context, shelterID string) (DispatchOutcome, error) {
	shelterID = strings.TrimSpace(shelterID)

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return DispatchOutcome{}, port.ErrViewClosed
	}
	v.seq++
	seq := v.seq
	v.lastSeen = v.deps.Clock.Now()
	v.mu.Unlock()

	// A browser that navigates away does not abort an in-flight dispatch.
	callCtx := context.WithoutCancel(ctx)
	requestID := v.deps.NewID()
	slog.Info("dashboard dispatch start", slog.String("sessionId", v.sessionID), slog.String("shelterId", shelterID), slog.String("requestId", requestID), slog.Uint64("seq", seq))

	result, err := v.deps.Dispatch.Request(callCtx, shelterID)
	resolvedAt := v.deps.Clock.Now().UTC()

	notice := domain.Notice{
		ID:        requestID,
		ShelterID: shelterID,
		IssuedAt:  resolvedAt,
		ExpiresAt: resolvedAt.Add(v.deps.NoticeTTL),
	}
	event := shelters.DispatchEvent{RequestID: requestID, ShelterID: shelterID, UserID: v.userID, At: resolvedAt}
	outcome := port.OutcomeSuccess
	if err != nil || result == nil {
		slog.Error("dashboard dispatch failed", slog.String("sessionId", v.sessionID), slog.String("shelterId", shelterID), slog.String("requestId", requestID), slog.Any("error", err))
		notice.Text = shelters.DispatchFailedMessage
		notice.Kind = domain.NoticeFailure
		outcome = port.OutcomeFailure
	} else {
		notice.Text = result.Message()
		notice.Kind = domain.NoticeSuccess
		eta := result.ETAMinutes
		event.OK = true
		event.ETAMinutes = &eta
	}

	displayed := v.show(callCtx, seq, notice)
	if !displayed {
		slog.Info("dashboard dispatch notice superseded", slog.String("sessionId", v.sessionID), slog.String("requestId", requestID), slog.Uint64("seq", seq))
	}

	if v.deps.Metrics != nil {
		v.deps.Metrics.DispatchResolved(outcome)
	}
	if v.deps.Events != nil {
		if pubErr := v.deps.Events.PublishDispatch(callCtx, event); pubErr != nil {
			slog.Warn("dashboard dispatch event publish failed", slog.String("requestId", requestID), slog.Any("error", pubErr))
		}
	}

	return DispatchOutcome{Notice: notice, Displayed: displayed}, nil
}

func (v *View) show(ctx context.Context, seq uint64, notice domain.Notice) bool {
	v.mu.Lock()
	if v.closed || seq < v.shownSeq {
		v.mu.Unlock()
		return false
	}
	if v.timer != nil {
		v.timer.Stop()
	}
	v.shownSeq = seq
	v.notice = &notice
	v.timer = v.deps.Clock.AfterFunc(v.deps.NoticeTTL, func() { v.expire(seq) })
	v.pushMu.Lock()
	v.mu.Unlock()
	defer v.pushMu.Unlock()

	if v.deps.Notices != nil {
		v.deps.Notices.NoticeSet(ctx, v.sessionID, notice)
	}
	return true
}

// expire clears the notice armed for seq. A timer that lost the slot to a
// newer notice finds a different seq and leaves it alone.
func (v *View) expire(seq uint64) {
	v.mu.Lock()
	if v.closed || v.notice == nil || v.shownSeq != seq {
		v.mu.Unlock()
		return
	}
	noticeID := v.notice.ID
	v.notice = nil
	v.timer = nil
	v.pushMu.Lock()
	v.mu.Unlock()
	defer v.pushMu.Unlock()

	slog.Debug("dashboard notice cleared", slog.String("sessionId", v.sessionID), slog.String("noticeId", noticeID))
	if v.deps.Notices != nil {
		v.deps.Notices.NoticeCleared(context.Background(), v.sessionID, noticeID)
	}
}

// Close unmounts the view: the pending clear is stopped, the shelter load is
// cancelled and later dispatches are refused.
func (v *View) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	if v.timer != nil {
		v.timer.Stop()
		v.timer = nil
	}
	v.notice = nil
	v.mu.Unlock()
	v.cancel()
}

func (v *View) touch() {
	v.mu.Lock()
	v.lastSeen = v.deps.Clock.Now()
	v.mu.Unlock()
}

func (v *View) idleSince(now time.Time) time.Duration {
	v.mu.Lock()
	defer v.mu.Unlock()
	return now.Sub(v.lastSeen)
}
