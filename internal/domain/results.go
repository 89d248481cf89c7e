package domain

import (
	"strings"
	"time"
)

// TimeoutSelection is the selection recorded when the clock runs out.
const TimeoutSelection = -1

// Outcome summarizes one recorded answer.
type Outcome struct {
	QuestionIndex int  `json:"questionIndex"`
	Selected      int  `json:"selected"`
	TimedOut      bool `json:"timedOut"`
	Correct       bool `json:"correct"`
	CorrectIndex  int  `json:"correctIndex"`
	Score         int  `json:"score"`
	Streak        int  `json:"streak"`
	CoinsEarned   int  `json:"coinsEarned"`
	LastQuestion  bool `json:"lastQuestion"`
}

// RoundResult is reported when a round finishes.
type RoundResult struct {
	Subject        string  `json:"subject"`
	Tier           int     `json:"tier"`
	Score          int     `json:"score"`
	Total          int     `json:"total"`
	Percentage     float64 `json:"percentage"`
	Passed         bool    `json:"passed"`
	Perfect        bool    `json:"perfect"`
	Unlocked       bool    `json:"unlocked"`
	UnlockedTier   int     `json:"unlockedTier"`
	NewlyMastered  bool    `json:"newlyMastered"`
	CoinsEarned    int     `json:"coinsEarned"`
	BestStreak     int     `json:"bestStreak"`
	ElapsedSeconds int     `json:"elapsedSeconds"`
}

// DisplayPercentage rounds the percentage for presentation only.
func (r RoundResult) DisplayPercentage() int {
	return int(r.Percentage + 0.5)
}

// LeaderboardEntry is one persisted finished round.
type LeaderboardEntry struct {
	ID          string    `json:"id"`
	Player      string    `json:"player"`
	Subject     string    `json:"subject"`
	Tier        int       `json:"tier"`
	Score       int       `json:"score"`
	Total       int       `json:"total"`
	Percentage  int       `json:"percentage"`
	Time        *int      `json:"time,omitempty"` // elapsed seconds, nil when untimed
	Avatar      string    `json:"avatar,omitempty"`
	CompletedAt time.Time `json:"timestamp"`
}

// Elapsed returns the recorded time and whether one was tracked.
func (e LeaderboardEntry) Elapsed() (int, bool) {
	if e.Time == nil {
		return 0, false
	}
	return *e.Time, true
}

// Validate checks the fields ranking and stats depend on.
func (e LeaderboardEntry) Validate() error {
	switch {
	case strings.TrimSpace(e.Player) == "":
		return ErrInvalidPlayer
	case e.Subject == "", e.Total <= 0, e.Score < 0, e.Score > e.Total:
		return ErrInvalidEntry
	case e.Time != nil && *e.Time < 0:
		return ErrInvalidEntry
	}
	return nil
}

// SubjectStats is the subject-scoped slice of a player's aggregates.
type SubjectStats struct {
	Games          int `json:"games"`
	TotalScore     int `json:"totalScore"`
	TotalPossible  int `json:"totalPossible"`
	BestPercentage int `json:"bestScore"`
	TotalTime      int `json:"totalTime"`
	TimedGames     int `json:"timedGames"`
	AverageTime    int `json:"averageTime"`
}

// PlayerStats aggregates every entry recorded for one player.
type PlayerStats struct {
	Player         string                  `json:"player"`
	TotalGames     int                     `json:"totalGames"`
	TotalScore     int                     `json:"totalScore"`
	TotalPossible  int                     `json:"totalPossible"`
	BestPercentage int                     `json:"bestScore"`
	TotalTime      int                     `json:"totalTime"`
	TimedGames     int                     `json:"timedGames"`
	AverageTime    int                     `json:"averageTime"`
	FirstPlayed    time.Time               `json:"firstPlayed"`
	Subjects       map[string]SubjectStats `json:"categories"`
	History        []LeaderboardEntry      `json:"history"`
}

// Leaderboard is a ranked snapshot pushed to subscribers.
type Leaderboard struct {
	Subject   string             `json:"subject,omitempty"`
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}
