package engine

import (
	"time"

	"trivia-service/internal/domain"
)

// Round is the ephemeral state of one playthrough. It is never persisted.
type Round struct {
	Subject    string
	Tier       int
	TierCount  int
	Questions  []domain.RoundQuestion
	Current    int
	Score      int
	Streak     int
	BestStreak int
	Coins      int
	Clock      *Clock
	Used       map[domain.LifelineKind]bool
	Answers    []domain.Outcome
	StartedAt  time.Time
}

func newRound(subject domain.Subject, tier int, questions []domain.RoundQuestion, limit time.Duration, now time.Time) *Round {
	return &Round{
		Subject:   subject.Name,
		Tier:      tier,
		TierCount: subject.TierCount(),
		Questions: questions,
		Clock:     NewClock(limit),
		Used:      make(map[domain.LifelineKind]bool, len(domain.LifelineKinds)),
		StartedAt: now,
	}
}

// Question returns the question under the pointer.
func (r *Round) Question() (domain.RoundQuestion, bool) {
	if r.Current < 0 || r.Current >= len(r.Questions) {
		return domain.RoundQuestion{}, false
	}
	return r.Questions[r.Current], true
}

// Answered reports whether the current question has a recorded outcome.
func (r *Round) Answered() bool {
	return len(r.Answers) > r.Current
}

// Complete reports whether every question has a recorded outcome.
func (r *Round) Complete() bool {
	return len(r.Answers) >= len(r.Questions)
}

// Advance moves to the next question and restarts the clock.
// It returns false when the answered question was the last one.
func (r *Round) Advance() (bool, error) {
	if !r.Answered() {
		return false, domain.ErrQuestionPending
	}
	if r.Current+1 >= len(r.Questions) {
		return false, nil
	}
	r.Current++
	r.Clock.Reset()
	return true, nil
}
