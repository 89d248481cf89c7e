package domain

import (
	"errors"
	"fmt"
)

// Blocked operations: the request is understood but cannot proceed in the current state.
var (
	// ErrTierLocked is returned when a round is requested for a tier above the player's unlocked counter.
	ErrTierLocked = errors.New("tier is locked")
	// ErrNoActiveRound is returned when a round operation is invoked without a started round.
	ErrNoActiveRound = errors.New("no active round")
	// ErrQuestionAnswered is returned when the current question already has a final selection.
	ErrQuestionAnswered = errors.New("question already answered")
	// ErrQuestionPending is returned when advancing past a question that has not been answered.
	ErrQuestionPending = errors.New("question not answered yet")
	// ErrRoundIncomplete is returned when finishing a round with unanswered questions.
	ErrRoundIncomplete = errors.New("round has unanswered questions")
	// ErrInsufficientCoins is returned when a purchase costs more than the balance.
	ErrInsufficientCoins = errors.New("insufficient coins")
	// ErrItemNotOwned is returned when equipping a cosmetic that was never bought.
	ErrItemNotOwned = errors.New("item not owned")
)

// Validation failures: the request itself is malformed.
var (
	ErrSubjectNotFound = errors.New("subject not found")
	ErrTierOutOfRange  = errors.New("tier out of range")
	ErrInvalidOption   = errors.New("option index out of range")
	ErrInvalidEntry    = errors.New("invalid leaderboard entry")
	ErrInvalidPlayer   = errors.New("player name is required")
	ErrUnknownItem     = errors.New("unknown store item")
	ErrUnknownLifeline = errors.New("unknown lifeline")
	ErrInvalidQuestion = errors.New("invalid question")
)

// ErrPersistence matches every PersistenceError via errors.Is.
var ErrPersistence = errors.New("persistence failure")

// PersistenceError reports a failed read or write against the storage gateway.
// Game state is never rolled back when one is returned.
type PersistenceError struct {
	Op  string
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

// NewPersistenceError wraps err unless it is nil.
func NewPersistenceError(op, key string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Key: key, Err: err}
}

// IsBlocked reports whether err is one of the "cannot proceed" signals.
func IsBlocked(err error) bool {
	for _, target := range []error{
		ErrTierLocked, ErrNoActiveRound, ErrQuestionAnswered, ErrQuestionPending,
		ErrRoundIncomplete, ErrInsufficientCoins, ErrItemNotOwned,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
