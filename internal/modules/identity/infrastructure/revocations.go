package infrastructure

import (
	"strings"
	"sync"
	"time"
)

// RevokedSessions remembers logged-out session ids until their tokens would
// have expired anyway. A replayed cookie for such a session is refused.
type RevokedSessions struct {
	mu  sync.Mutex
	now func() time.Time
	ids map[string]time.Time
}

func NewRevokedSessions() *RevokedSessions {
	return &RevokedSessions{now: time.Now, ids: make(map[string]time.Time)}
}

func (r *RevokedSessions) Revoke(sessionID string, until time.Time) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	for id, expiry := range r.ids {
		if !now.Before(expiry) {
			delete(r.ids, id)
		}
	}
	if now.Before(until) {
		r.ids[sessionID] = until
	}
}

func (r *RevokedSessions) Revoked(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	until, ok := r.ids[strings.TrimSpace(sessionID)]
	return ok && r.now().Before(until)
}

func (r *RevokedSessions) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ids)
}
