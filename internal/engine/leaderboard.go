package engine

import (
	"math"
	"slices"
	"sort"
	"strings"

	"trivia-service/internal/domain"
)

// AllSubjects is the filter value that disables subject filtering.
const AllSubjects = "All"

// Less orders entries by score desc, then recorded time asc, then recency desc.
// Timed entries rank ahead of untimed ones with the same score so the order stays transitive.
func Less(a, b domain.LeaderboardEntry) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	at, aTimed := a.Elapsed()
	bt, bTimed := b.Elapsed()
	if aTimed != bTimed {
		return aTimed
	}
	if aTimed && at != bt {
		return at < bt
	}
	return a.CompletedAt.After(b.CompletedAt)
}

// Rank returns a stably sorted copy of entries.
func Rank(entries []domain.LeaderboardEntry) []domain.LeaderboardEntry {
	ranked := slices.Clone(entries)
	sort.SliceStable(ranked, func(i, j int) bool { return Less(ranked[i], ranked[j]) })
	return ranked
}

// Top filters by subject (empty or "All" keeps everything), ranks and caps at limit (0 = no cap).
func Top(entries []domain.LeaderboardEntry, subject string, limit int) []domain.LeaderboardEntry {
	filtered := make([]domain.LeaderboardEntry, 0, len(entries))
	for _, e := range entries {
		if matchesSubject(e, subject) {
			filtered = append(filtered, e)
		}
	}
	ranked := Rank(filtered)
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func matchesSubject(e domain.LeaderboardEntry, subject string) bool {
	return subject == "" || strings.EqualFold(subject, AllSubjects) || e.Subject == subject
}

// EntryPercentage recomputes an entry's rounded percentage from score and total.
func EntryPercentage(e domain.LeaderboardEntry) int {
	return int(math.Round(Percentage(e.Score, e.Total)))
}
