package app

import (
	"sync"
	"time"

	"trivia-service/internal/engine"
)

// Session holds one player's active round. It is ephemeral and never persisted.
type Session struct {
	player    string
	createdAt time.Time
	now       func() time.Time

	mu    sync.Mutex
	round *engine.Round
}

// NewSession is exported for infrastructure layers that need to seed sessions.
func NewSession(player string) *Session {
	return NewSessionWithClock(player, time.Now)
}

// NewSessionWithClock is test-only for deterministic timestamps.
func NewSessionWithClock(player string, now func() time.Time) *Session {
	return &Session{player: player, createdAt: now(), now: now}
}

// Player returns the owning player's name.
func (s *Session) Player() string { return s.player }

// IsIdle reports whether no round is in progress.
func (s *Session) IsIdle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.round == nil
}

func (s *Session) activeLocked() (*engine.Round, bool) {
	return s.round, s.round != nil
}

// CreatedAt is when the player's session was opened.
func (s *Session) CreatedAt() time.Time { return s.createdAt }
