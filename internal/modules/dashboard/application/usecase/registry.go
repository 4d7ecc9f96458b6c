package usecase

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Registry keeps one mounted View per session. Views that go unseen for
// longer than the idle TTL are closed by Sweep.
type Registry struct {
	deps    ViewDeps
	idleTTL time.Duration

	mu    sync.RWMutex
	views map[string]*View
}

func NewRegistry(deps ViewDeps, idleTTL time.Duration) *Registry {
	return &Registry{
		deps:    deps.withDefaults(),
		idleTTL: idleTTL,
		views:   make(map[string]*View),
	}
}

// Mount returns the session's view, creating and starting it on first use.
// A revisit reuses the existing view so the shelter list is not fetched again.
func (r *Registry) Mount(sessionID, userID string) *View {
	sessionID = strings.TrimSpace(sessionID)
	r.mu.Lock()
	view, ok := r.views[sessionID]
	if !ok {
		view = NewView(sessionID, userID, r.deps)
		r.views[sessionID] = view
	}
	count := len(r.views)
	r.mu.Unlock()

	view.Mount()
	if !ok {
		slog.Info("dashboard view mounted", slog.String("sessionId", sessionID), slog.Int("views", count))
		r.recordCount(count)
	}
	return view
}

func (r *Registry) Lookup(sessionID string) (*View, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	view, ok := r.views[strings.TrimSpace(sessionID)]
	return view, ok
}

// Unmount closes and forgets the session's view.
func (r *Registry) Unmount(sessionID string) {
	sessionID = strings.TrimSpace(sessionID)
	r.mu.Lock()
	view, ok := r.views[sessionID]
	if ok {
		delete(r.views, sessionID)
	}
	count := len(r.views)
	r.mu.Unlock()

	if !ok {
		return
	}
	view.Close()
	slog.Info("dashboard view unmounted", slog.String("sessionId", sessionID), slog.Int("views", count))
	r.recordCount(count)
}

// Sweep closes views idle for longer than the TTL and returns how many it removed.
func (r *Registry) Sweep() int {
	if r.idleTTL <= 0 {
		return 0
	}
	now := r.deps.Clock.Now()

	r.mu.Lock()
	var stale []*View
	for sessionID, view := range r.views {
		if view.idleSince(now) > r.idleTTL {
			stale = append(stale, view)
			delete(r.views, sessionID)
		}
	}
	count := len(r.views)
	r.mu.Unlock()

	for _, view := range stale {
		view.Close()
	}
	if len(stale) > 0 {
		slog.Info("dashboard idle views swept", slog.Int("removed", len(stale)), slog.Int("views", count))
		r.recordCount(count)
	}
	return len(stale)
}

// Run sweeps on every tick until ctx is cancelled, then closes every view.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.closeAll()
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.views)
}

func (r *Registry) closeAll() {
	r.mu.Lock()
	views := r.views
	r.views = make(map[string]*View)
	r.mu.Unlock()
	for _, view := range views {
		view.Close()
	}
	r.recordCount(0)
}

func (r *Registry) recordCount(count int) {
	if r.deps.Metrics != nil {
		r.deps.Metrics.ViewsMounted(count)
	}
}
