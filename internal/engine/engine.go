package engine

import (
	"math"
	"time"

	"trivia-service/internal/domain"
)

// Rules holds the tunable scoring and timing constants.
type Rules struct {
	DrawCount    int
	QuestionTime time.Duration
	FreezeTime   time.Duration
	PassPercent  float64
	BaseCoins    int
	StreakBonus  int
}

// DefaultRules mirrors the shipped game configuration.
func DefaultRules() Rules {
	return Rules{
		DrawCount:    5,
		QuestionTime: 30 * time.Second,
		FreezeTime:   10 * time.Second,
		PassPercent:  70,
		BaseCoins:    10,
		StreakBonus:  2,
	}
}

// Engine composes rounds and applies scoring and progression to them.
type Engine struct {
	rules Rules
	rng   Source
}

func New(rules Rules, rng Source) *Engine {
	if rng == nil {
		rng = NewSource(0)
	}
	return &Engine{rules: rules, rng: rng}
}

// Rules returns the engine's constants.
func (e *Engine) Rules() Rules { return e.rules }

// CheckStart rejects out-of-range and locked tiers without touching any state.
func CheckStart(profile domain.Profile, subject domain.Subject, tier int) error {
	if _, err := subject.Tier(tier); err != nil {
		return err
	}
	if tier > profile.UnlockedTier(subject.Name) {
		return domain.ErrTierLocked
	}
	return nil
}

// StartRound guards the tier and draws a fresh round.
func (e *Engine) StartRound(profile domain.Profile, subject domain.Subject, tier int, now time.Time) (*Round, error) {
	if err := CheckStart(profile, subject, tier); err != nil {
		return nil, err
	}
	t, _ := subject.Tier(tier)
	draw := t.DrawCount
	if draw <= 0 {
		draw = e.rules.DrawCount
	}
	questions, err := ComposeRound(e.rng, subject, tier, draw)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, domain.ErrInvalidQuestion
	}
	return newRound(subject, tier, questions, e.rules.QuestionTime, now), nil
}

// CoinReward is the payout for a correct answer given the streak before it.
func CoinReward(base, bonusPerStreak, streak int) int {
	return base + streak*bonusPerStreak
}

// Percentage is score/total*100 without rounding.
func Percentage(score, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(score) * 100 / float64(total)
}

// RecordAnswer scores the player's selection for the current question.
// Pass domain.TimeoutSelection for "no answer".
func (e *Engine) RecordAnswer(r *Round, selection int) (domain.Outcome, error) {
	q, ok := r.Question()
	if !ok {
		return domain.Outcome{}, domain.ErrNoActiveRound
	}
	if r.Answered() {
		return domain.Outcome{}, domain.ErrQuestionAnswered
	}
	if selection != domain.TimeoutSelection && (selection < 0 || selection >= len(q.Options)) {
		return domain.Outcome{}, domain.ErrInvalidOption
	}
	r.Clock.Answer(selection)
	return e.score(r, q, selection), nil
}

// Tick advances the question clock. When the clock expires the timeout is
// scored through the same path as a player selection.
func (e *Engine) Tick(r *Round, step time.Duration) (domain.Outcome, bool) {
	q, ok := r.Question()
	if !ok || r.Answered() {
		return domain.Outcome{}, false
	}
	if !r.Clock.Tick(step) {
		return domain.Outcome{}, false
	}
	return e.score(r, q, domain.TimeoutSelection), true
}

func (e *Engine) score(r *Round, q domain.RoundQuestion, selection int) domain.Outcome {
	correct := selection != domain.TimeoutSelection && selection == q.Correct
	coins := 0
	if correct {
		coins = CoinReward(e.rules.BaseCoins, e.rules.StreakBonus, r.Streak)
		r.Score++
		r.Streak++
		r.BestStreak = max(r.BestStreak, r.Streak)
		r.Coins += coins
	} else {
		r.Streak = 0
	}

	outcome := domain.Outcome{
		QuestionIndex: r.Current,
		Selected:      selection,
		TimedOut:      selection == domain.TimeoutSelection,
		Correct:       correct,
		CorrectIndex:  q.Correct,
		Score:         r.Score,
		Streak:        r.Streak,
		CoinsEarned:   coins,
		LastQuestion:  r.Current == len(r.Questions)-1,
	}
	r.Answers = append(r.Answers, outcome)
	return outcome
}

// FinishRound settles a completed round into the profile: coins, tier unlock, mastery.
func (e *Engine) FinishRound(r *Round, profile *domain.Profile, now time.Time) (domain.RoundResult, error) {
	if !r.Complete() {
		return domain.RoundResult{}, domain.ErrRoundIncomplete
	}
	total := len(r.Questions)
	pct := Percentage(r.Score, total)
	result := domain.RoundResult{
		Subject:        r.Subject,
		Tier:           r.Tier,
		Score:          r.Score,
		Total:          total,
		Percentage:     pct,
		Passed:         total > 0 && pct >= e.rules.PassPercent,
		Perfect:        total > 0 && r.Score == total,
		CoinsEarned:    r.Coins,
		BestStreak:     r.BestStreak,
		ElapsedSeconds: int(math.Round(now.Sub(r.StartedAt).Seconds())),
	}

	current := profile.UnlockedTier(r.Subject)
	if result.Passed && r.Tier == current && r.Tier < r.TierCount {
		if profile.Unlocked == nil {
			profile.Unlocked = make(map[string]int)
		}
		profile.Unlocked[r.Subject] = current + 1
		result.Unlocked = true
	}
	result.UnlockedTier = min(profile.UnlockedTier(r.Subject), max(r.TierCount, 1))
	if result.Perfect {
		result.NewlyMastered = profile.MarkMastered(r.Subject, r.Tier)
	}
	profile.Coins += r.Coins
	profile.UpdatedAt = now
	return result, nil
}
