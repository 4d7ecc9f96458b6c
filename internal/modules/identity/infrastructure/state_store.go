package infrastructure

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"evacumate/internal/modules/identity/application/port"
)

const defaultStateTTL = 10 * time.Minute

type loginState struct {
	verifier  string
	expiresAt time.Time
}

// StateStore keeps pending login attempts in memory until their callback
// arrives or they expire. Each state can be taken once.
type StateStore struct {
	mu     sync.Mutex
	ttl    time.Duration
	now    func() time.Time
	states map[string]loginState
}

func NewStateStore(ttl time.Duration) *StateStore {
	if ttl <= 0 {
		ttl = defaultStateTTL
	}
	return &StateStore{ttl: ttl, now: time.Now, states: make(map[string]loginState)}
}

// Create stores the PKCE verifier under a fresh random state value.
func (s *StateStore) Create(verifier string) string {
	state := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.pruneLocked(now)
	s.states[state] = loginState{verifier: verifier, expiresAt: now.Add(s.ttl)}
	return state
}

// Take consumes a state and returns its verifier.
func (s *StateStore) Take(state string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.states[state]
	if !ok {
		return "", port.ErrInvalidState
	}
	delete(s.states, state)
	if !s.now().Before(stored.expiresAt) {
		return "", port.ErrStateExpired
	}
	return stored.verifier, nil
}

func (s *StateStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.states)
}

func (s *StateStore) pruneLocked(now time.Time) {
	for key, stored := range s.states {
		if !now.Before(stored.expiresAt) {
			delete(s.states, key)
		}
	}
}
