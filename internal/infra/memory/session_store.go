package memory

import (
	"slices"
	"sync"

	"trivia-service/internal/app"
)

// SessionHooks observe a player's session opening and closing. Both run while
// the store lock is held, so they see opens and closes in order.
type SessionHooks struct {
	Opened func(s *app.Session)
	Closed func(player string)
}

// SessionStore keeps at most one session per player in process memory. A
// session is dropped once its round is finished or abandoned.
type SessionStore struct {
	mu       sync.RWMutex
	byPlayer map[string]*app.Session
	hooks    SessionHooks
}

func NewSessionStore() *SessionStore {
	return NewSessionStoreWithHooks(SessionHooks{})
}

// NewSessionStoreWithHooks lets other backends mirror session lifetimes.
func NewSessionStoreWithHooks(hooks SessionHooks) *SessionStore {
	return &SessionStore{byPlayer: make(map[string]*app.Session), hooks: hooks}
}

// GetOrCreate returns the player's session, opening one on first use.
func (s *SessionStore) GetOrCreate(player string) *app.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.byPlayer[player]; ok {
		return existing
	}
	opened := app.NewSession(player)
	s.byPlayer[player] = opened
	if s.hooks.Opened != nil {
		s.hooks.Opened(opened)
	}
	return opened
}

func (s *SessionStore) Get(player string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	found, ok := s.byPlayer[player]
	return found, ok
}

// DeleteIfIdle drops the player's session unless a round is still running.
func (s *SessionStore) DeleteIfIdle(player string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if found, ok := s.byPlayer[player]; !ok || !found.IsIdle() {
		return
	}
	delete(s.byPlayer, player)
	if s.hooks.Closed != nil {
		s.hooks.Closed(player)
	}
}

// Players lists players holding a session, sorted by name.
func (s *SessionStore) Players() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	players := make([]string, 0, len(s.byPlayer))
	for p := range s.byPlayer {
		players = append(players, p)
	}
	slices.Sort(players)
	return players
}
