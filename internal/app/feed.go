package app

import (
	"sync"

	"trivia-service/internal/domain"
)

// feed fans leaderboard snapshots out to subscribers, one subject filter each.
type feed struct {
	mu          sync.Mutex
	subscribers map[chan domain.Leaderboard]string
}

func newFeed() *feed {
	return &feed{subscribers: make(map[chan domain.Leaderboard]string)}
}

func (f *feed) subscribe(subject string, initial domain.Leaderboard) (<-chan domain.Leaderboard, func()) {
	ch := make(chan domain.Leaderboard, 8)
	ch <- initial

	f.mu.Lock()
	f.subscribers[ch] = subject
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		if _, ok := f.subscribers[ch]; ok {
			delete(f.subscribers, ch)
			close(ch)
		}
		f.mu.Unlock()
	}
	return ch, cancel
}

// broadcast pushes a fresh snapshot to every subscriber whose filter matches subject.
func (f *feed) broadcast(subject string, snapshot func(filter string) domain.Leaderboard) {
	f.mu.Lock()
	defer f.mu.Unlock()

	cache := make(map[string]domain.Leaderboard)
	for ch, filter := range f.subscribers {
		if filter != "" && filter != subject {
			continue
		}
		lb, ok := cache[filter]
		if !ok {
			lb = snapshot(filter)
			cache[filter] = lb
		}
		select {
		case ch <- lb:
		default:
			// Drop the stale snapshot so a slow reader never blocks a submit.
			select {
			case <-ch:
			default:
			}
			ch <- lb
		}
	}
}

func (f *feed) size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribers)
}
