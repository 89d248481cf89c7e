package engine

import (
	"math/rand"
	"slices"
	"sync"
	"time"
)

// Source is the random source the engine draws from. *rand.Rand satisfies it.
type Source interface {
	Intn(n int) int
}

// Shuffle returns a uniformly permuted copy of in (Fisher-Yates). in is not modified.
func Shuffle[T any](rng Source, in []T) []T {
	out := slices.Clone(in)
	for i := len(out) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// NewSource returns a goroutine-safe source seeded from seed, or from the clock when seed is 0.
func NewSource(seed int64) Source {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &lockedSource{rnd: rand.New(rand.NewSource(seed))}
}

type lockedSource struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func (s *lockedSource) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Intn(n)
}

func identity(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}
