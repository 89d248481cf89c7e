package app

import (
	"sync"

	"trivia-service/internal/domain"
)

// journal keeps entries whose write failed so views still show them and a
// later retry can persist them.
type journal struct {
	mu      sync.Mutex
	pending []domain.LeaderboardEntry
}

func (j *journal) add(e domain.LeaderboardEntry) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.pending = append(j.pending, e)
}

func (j *journal) snapshot() []domain.LeaderboardEntry {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]domain.LeaderboardEntry, len(j.pending))
	copy(out, j.pending)
	return out
}

// drain hands every pending entry to write and keeps the ones that still fail.
func (j *journal) drain(write func(domain.LeaderboardEntry) error) (int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	var lastErr error
	kept := j.pending[:0]
	for _, e := range j.pending {
		if err := write(e); err != nil {
			lastErr = err
			kept = append(kept, e)
		}
	}
	j.pending = kept
	return len(kept), lastErr
}

// merge returns stored plus pending entries not already present in stored.
func (j *journal) merge(stored []domain.LeaderboardEntry) []domain.LeaderboardEntry {
	pending := j.snapshot()
	if len(pending) == 0 {
		return stored
	}
	ids := make(map[string]struct{}, len(stored))
	for _, e := range stored {
		ids[e.ID] = struct{}{}
	}
	out := append([]domain.LeaderboardEntry(nil), stored...)
	for _, e := range pending {
		if _, ok := ids[e.ID]; !ok {
			out = append(out, e)
		}
	}
	return out
}
