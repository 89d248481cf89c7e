package engine

import (
	"math"
	"slices"
	"sort"

	"trivia-service/internal/domain"
)

// Aggregate folds every entry belonging to player into lifetime stats.
// The result depends only on the entry set, never on previously computed totals.
// historyLimit caps the most-recent-first history (0 = uncapped).
func Aggregate(player string, entries []domain.LeaderboardEntry, historyLimit int) (domain.PlayerStats, bool) {
	own := make([]domain.LeaderboardEntry, 0)
	for _, e := range entries {
		if e.Player == player {
			own = append(own, e)
		}
	}
	if len(own) == 0 {
		return domain.PlayerStats{}, false
	}
	sort.SliceStable(own, func(i, j int) bool { return own[i].CompletedAt.Before(own[j].CompletedAt) })

	stats := domain.PlayerStats{
		Player:      player,
		FirstPlayed: own[0].CompletedAt,
		Subjects:    make(map[string]domain.SubjectStats),
	}
	for _, e := range own {
		pct := EntryPercentage(e)
		elapsed, timed := e.Elapsed()

		stats.TotalGames++
		stats.TotalScore += e.Score
		stats.TotalPossible += e.Total
		stats.BestPercentage = max(stats.BestPercentage, pct)

		sub := stats.Subjects[e.Subject]
		sub.Games++
		sub.TotalScore += e.Score
		sub.TotalPossible += e.Total
		sub.BestPercentage = max(sub.BestPercentage, pct)

		if timed {
			stats.TotalTime += elapsed
			stats.TimedGames++
			sub.TotalTime += elapsed
			sub.TimedGames++
		}
		sub.AverageTime = average(sub.TotalTime, sub.TimedGames)
		stats.Subjects[e.Subject] = sub
	}
	stats.AverageTime = average(stats.TotalTime, stats.TimedGames)

	n := len(own)
	if historyLimit > 0 && n > historyLimit {
		n = historyLimit
	}
	// Newest last in own; drop the oldest when capping.
	history := slices.Clone(own[len(own)-n:])
	slices.Reverse(history)
	stats.History = history
	return stats, true
}

// AggregateAll builds stats for every player, best total score first.
func AggregateAll(entries []domain.LeaderboardEntry, historyLimit int) []domain.PlayerStats {
	seen := make(map[string]struct{})
	players := make([]string, 0)
	for _, e := range entries {
		if _, ok := seen[e.Player]; !ok {
			seen[e.Player] = struct{}{}
			players = append(players, e.Player)
		}
	}
	out := make([]domain.PlayerStats, 0, len(players))
	for _, p := range players {
		if stats, ok := Aggregate(p, entries, historyLimit); ok {
			out = append(out, stats)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TotalScore != out[j].TotalScore {
			return out[i].TotalScore > out[j].TotalScore
		}
		return out[i].Player < out[j].Player
	})
	return out
}

func average(total, count int) int {
	if count == 0 {
		return 0
	}
	return int(math.Round(float64(total) / float64(count)))
}
