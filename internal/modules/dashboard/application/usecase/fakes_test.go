package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"evacumate/internal/modules/dashboard/domain"
	shelters "evacumate/internal/modules/shelters/domain"
)

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 9, 12, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	timer := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, timer)
	return timer
}

// Advance moves the clock forward and runs due timers on the caller's goroutine.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, timer := range c.timers {
		if !timer.stopped && !timer.fired && !timer.at.After(c.now) {
			timer.fired = true
			due = append(due, timer)
		}
	}
	c.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, timer := range due {
		timer.f()
	}
}

func (c *fakeClock) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	count := 0
	for _, timer := range c.timers {
		if !timer.stopped && !timer.fired {
			count++
		}
	}
	return count
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

type stubShelters struct {
	calls atomic.Int32
	list  func(ctx context.Context) ([]shelters.Shelter, error)
}

func (s *stubShelters) List(ctx context.Context) ([]shelters.Shelter, error) {
	s.calls.Add(1)
	return s.list(ctx)
}

type stubDispatch struct {
	request func(ctx context.Context, shelterID string) (*shelters.DispatchResult, error)
}

func (s *stubDispatch) Request(ctx context.Context, shelterID string) (*shelters.DispatchResult, error) {
	return s.request(ctx, shelterID)
}

// gatedDispatch holds every request until the test releases it.
type gatedDispatch struct {
	started chan string
	mu      sync.Mutex
	gates   map[string]chan dispatchReply
}

type dispatchReply struct {
	result *shelters.DispatchResult
	err    error
}

func newGatedDispatch() *gatedDispatch {
	return &gatedDispatch{started: make(chan string, 8), gates: make(map[string]chan dispatchReply)}
}

func (g *gatedDispatch) gate(shelterID string) chan dispatchReply {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.gates[shelterID]
	if !ok {
		ch = make(chan dispatchReply, 1)
		g.gates[shelterID] = ch
	}
	return ch
}

func (g *gatedDispatch) Request(ctx context.Context, shelterID string) (*shelters.DispatchResult, error) {
	gate := g.gate(shelterID)
	g.started <- shelterID
	reply := <-gate
	return reply.result, reply.err
}

func (g *gatedDispatch) release(shelterID string, eta float64) {
	g.gate(shelterID) <- dispatchReply{result: &shelters.DispatchResult{ETAMinutes: eta}}
}

type recordedNotice struct {
	sessionID string
	noticeID  string
	text      string
	cleared   bool
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []recordedNotice
}

func (b *recordingBroadcaster) NoticeSet(_ context.Context, sessionID string, notice domain.Notice) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, recordedNotice{sessionID: sessionID, noticeID: notice.ID, text: notice.Text})
}

func (b *recordingBroadcaster) NoticeCleared(_ context.Context, sessionID, noticeID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, recordedNotice{sessionID: sessionID, noticeID: noticeID, cleared: true})
}

func (b *recordingBroadcaster) snapshot() []recordedNotice {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]recordedNotice(nil), b.events...)
}

type recordingEvents struct {
	mu     sync.Mutex
	events []shelters.DispatchEvent
	err    error
}

func (r *recordingEvents) PublishDispatch(_ context.Context, event shelters.DispatchEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.err
}

type recordingMetrics struct {
	mu         sync.Mutex
	loads      []string
	dispatches []string
	views      []int
}

func (m *recordingMetrics) ShelterLoad(outcome string, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads = append(m.loads, outcome)
}

func (m *recordingMetrics) DispatchResolved(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dispatches = append(m.dispatches, outcome)
}

func (m *recordingMetrics) ViewsMounted(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.views = append(m.views, count)
}

func sequentialIDs() func() string {
	var n atomic.Int32
	return func() string { return fmt.Sprintf("req-%d", n.Add(1)) }
}

func staticShelters(list ...shelters.Shelter) *stubShelters {
	return &stubShelters{list: func(context.Context) ([]shelters.Shelter, error) { return list, nil }}
}

// stallingBroadcaster holds the first NoticeSet until unblock is closed.
type stallingBroadcaster struct {
	recordingBroadcaster
	once    sync.Once
	entered chan struct{}
	unblock chan struct{}
}

func newStallingBroadcaster() *stallingBroadcaster {
	return &stallingBroadcaster{entered: make(chan struct{}), unblock: make(chan struct{})}
}

func (b *stallingBroadcaster) NoticeSet(ctx context.Context, sessionID string, notice domain.Notice) {
	first := false
	b.once.Do(func() { first = true })
	if first {
		close(b.entered)
		<-b.unblock
	}
	b.recordingBroadcaster.NoticeSet(ctx, sessionID, notice)
}

// armingClock reports every AfterFunc call on armed.
type armingClock struct {
	*fakeClock
	armed chan time.Duration
}

func (c *armingClock) AfterFunc(d time.Duration, f func()) Timer {
	timer := c.fakeClock.AfterFunc(d, f)
	c.armed <- d
	return timer
}
