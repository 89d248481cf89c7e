package engine

import (
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"testing"
	"time"

	"trivia-service/internal/domain"
)

func TestShuffleKeepsElementsAndInput(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	in := []int{1, 2, 3, 4, 5, 6}
	for i := 0; i < 50; i++ {
		out := Shuffle(rng, in)
		if !slices.Equal(in, []int{1, 2, 3, 4, 5, 6}) {
			t.Fatalf("input mutated: %v", in)
		}
		sorted := slices.Clone(out)
		slices.Sort(sorted)
		if !slices.Equal(sorted, in) {
			t.Fatalf("shuffle changed elements: %v", out)
		}
	}
}

func TestShuffleOptionsTracksCorrectByPosition(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	q := domain.Question{ID: "dup", Prompt: "?", Options: []string{"same", "same", "right", "same"}, Correct: 2}
	dupCorrect := domain.Question{ID: "dup2", Prompt: "?", Options: []string{"x", "x", "y", "z"}, Correct: 1}

	for i := 0; i < 200; i++ {
		rq := ShuffleOptions(rng, q)
		if rq.Options[rq.Correct] != "right" {
			t.Fatalf("correct index %d points at %q", rq.Correct, rq.Options[rq.Correct])
		}
		got := slices.Clone(rq.Options)
		want := slices.Clone(q.Options)
		slices.Sort(got)
		slices.Sort(want)
		if !slices.Equal(got, want) {
			t.Fatalf("option multiset changed: %v", rq.Options)
		}

		rq2 := ShuffleOptions(rng, dupCorrect)
		if rq2.Order[rq2.Correct] != 1 {
			t.Fatalf("duplicate text tracked by text instead of identity: order=%v correct=%d", rq2.Order, rq2.Correct)
		}
	}
}

func TestComposeRoundDrawSize(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	subject := testSubject(6, 2)

	cases := []struct {
		draw int
		want int
	}{
		{draw: 3, want: 3},
		{draw: 6, want: 6},
		{draw: 10, want: 6},
		{draw: 0, want: 0},
		{draw: -2, want: 0},
	}
	for _, tc := range cases {
		round, err := ComposeRound(rng, subject, 1, tc.draw)
		if err != nil {
			t.Fatalf("compose(%d): %v", tc.draw, err)
		}
		if len(round) != tc.want {
			t.Fatalf("compose(%d) returned %d questions, want %d", tc.draw, len(round), tc.want)
		}
		seen := map[string]bool{}
		for _, q := range round {
			if seen[q.QuestionID] {
				t.Fatalf("question %s drawn twice", q.QuestionID)
			}
			seen[q.QuestionID] = true
			if q.Correct < 0 || q.Correct >= len(q.Options) {
				t.Fatalf("invalid correct index %d", q.Correct)
			}
		}
	}

	if _, err := ComposeRound(rng, subject, 3, 2); !errors.Is(err, domain.ErrTierOutOfRange) {
		t.Fatalf("expected tier out of range, got %v", err)
	}
}

func TestComposeRoundGeneratedTier(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	subject := domain.Subject{Name: "Math", Tiers: []domain.Tier{{Number: 1, Title: "Mental", Generator: GeneratorArithmetic}}}

	round, err := ComposeRound(rng, subject, 1, 8)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if len(round) != 8 {
		t.Fatalf("expected 8 generated questions, got %d", len(round))
	}
	prompts := map[string]bool{}
	for _, q := range round {
		if prompts[q.Prompt] {
			t.Fatalf("duplicate generated prompt %q", q.Prompt)
		}
		prompts[q.Prompt] = true
		if len(q.Options) != 4 {
			t.Fatalf("expected 4 options, got %v", q.Options)
		}
	}
}

func TestStreakAndCoinsScenario(t *testing.T) {
	eng := New(Rules{DrawCount: 3, QuestionTime: 30 * time.Second, PassPercent: 70, BaseCoins: 10, StreakBonus: 2}, rand.New(rand.NewSource(1)))
	profile := domain.NewProfile("ana", domain.ProfileDefaults{})
	round, err := eng.StartRound(profile, testSubject(3, 1), 1, time.Now())
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	var coins []int
	for i := 0; i < 3; i++ {
		q, _ := round.Question()
		out, err := eng.RecordAnswer(round, q.Correct)
		if err != nil {
			t.Fatalf("answer %d: %v", i, err)
		}
		if out.Streak != i+1 {
			t.Fatalf("streak after %d correct = %d", i+1, out.Streak)
		}
		coins = append(coins, out.CoinsEarned)
		if _, err := round.Advance(); err != nil {
			t.Fatalf("advance: %v", err)
		}
	}
	if !slices.Equal(coins, []int{10, 12, 14}) {
		t.Fatalf("coins = %v, want [10 12 14]", coins)
	}
	if round.Streak != 3 {
		t.Fatalf("final streak %d", round.Streak)
	}
}

func TestWrongAndTimeoutResetStreak(t *testing.T) {
	eng := New(Rules{DrawCount: 4, QuestionTime: 3 * time.Second, PassPercent: 70, BaseCoins: 10, StreakBonus: 2}, rand.New(rand.NewSource(2)))
	round, err := eng.StartRound(domain.NewProfile("ana", domain.ProfileDefaults{}), testSubject(4, 1), 1, time.Now())
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	q, _ := round.Question()
	if _, err := eng.RecordAnswer(round, q.Correct); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if _, err := eng.RecordAnswer(round, q.Correct); !errors.Is(err, domain.ErrQuestionAnswered) {
		t.Fatalf("expected answered error, got %v", err)
	}
	round.Advance()

	q, _ = round.Question()
	out, _ := eng.RecordAnswer(round, (q.Correct+1)%len(q.Options))
	if out.Correct || out.Streak != 0 || out.CoinsEarned != 0 {
		t.Fatalf("wrong answer outcome %+v", out)
	}
	round.Advance()

	q, _ = round.Question()
	eng.RecordAnswer(round, q.Correct)
	round.Advance()

	for i := 0; i < 2; i++ {
		if _, expired := eng.Tick(round, time.Second); expired {
			t.Fatalf("expired early at tick %d", i)
		}
	}
	out, expired := eng.Tick(round, time.Second)
	if !expired || !out.TimedOut || out.Correct || out.Streak != 0 {
		t.Fatalf("timeout outcome %+v expired=%v", out, expired)
	}
	if sel, ok := round.Clock.Selection(); !ok || sel != domain.TimeoutSelection {
		t.Fatalf("clock selection %d/%v", sel, ok)
	}
}

func TestRecordAnswerRejectsOutOfRange(t *testing.T) {
	eng := New(DefaultRules(), rand.New(rand.NewSource(2)))
	round, _ := eng.StartRound(domain.NewProfile("ana", domain.ProfileDefaults{}), testSubject(5, 1), 1, time.Now())
	if _, err := eng.RecordAnswer(round, 4); !errors.Is(err, domain.ErrInvalidOption) {
		t.Fatalf("expected invalid option, got %v", err)
	}
	if round.Answered() || round.Clock.State() != ClockRunning {
		t.Fatalf("rejected answer mutated the round")
	}
}

func TestPassAndPerfectThresholds(t *testing.T) {
	cases := []struct {
		correct, total  int
		passed, perfect bool
	}{
		{correct: 7, total: 10, passed: true, perfect: false},
		{correct: 10, total: 10, passed: true, perfect: true},
		{correct: 6, total: 10, passed: false, perfect: false},
	}
	for _, tc := range cases {
		eng := New(Rules{DrawCount: tc.total, QuestionTime: time.Minute, PassPercent: 70, BaseCoins: 1}, rand.New(rand.NewSource(9)))
		profile := domain.NewProfile("ana", domain.ProfileDefaults{})
		round := playRound(t, eng, profile, testSubject(tc.total, 1), 1, tc.correct)
		res, err := eng.FinishRound(round, &profile, time.Now())
		if err != nil {
			t.Fatalf("finish: %v", err)
		}
		if res.Passed != tc.passed || res.Perfect != tc.perfect {
			t.Fatalf("%d/%d: passed=%v perfect=%v", tc.correct, tc.total, res.Passed, res.Perfect)
		}
		if want := float64(tc.correct) * 10; res.Percentage != want {
			t.Fatalf("percentage %v want %v", res.Percentage, want)
		}
	}
}

func TestFinishRequiresCompleteRound(t *testing.T) {
	eng := New(DefaultRules(), rand.New(rand.NewSource(4)))
	profile := domain.NewProfile("ana", domain.ProfileDefaults{})
	round, _ := eng.StartRound(profile, testSubject(5, 1), 1, time.Now())
	before := profile.Clone()
	if _, err := eng.FinishRound(round, &profile, time.Now()); !errors.Is(err, domain.ErrRoundIncomplete) {
		t.Fatalf("expected incomplete, got %v", err)
	}
	if profile.Coins != before.Coins || profile.UnlockedTier("Subject") != 1 {
		t.Fatalf("profile mutated by rejected finish")
	}
}

func TestUnlockIdempotence(t *testing.T) {
	eng := New(Rules{DrawCount: 4, QuestionTime: time.Minute, PassPercent: 70}, rand.New(rand.NewSource(12)))
	subject := testSubject(4, 3)
	profile := domain.NewProfile("ana", domain.ProfileDefaults{})

	finish := func(tier int) domain.RoundResult {
		round := playRound(t, eng, profile, subject, tier, 4)
		res, err := eng.FinishRound(round, &profile, time.Now())
		if err != nil {
			t.Fatalf("finish tier %d: %v", tier, err)
		}
		return res
	}

	if res := finish(1); !res.Unlocked || profile.UnlockedTier(subject.Name) != 2 {
		t.Fatalf("passing highest tier should unlock tier 2: %+v", res)
	}
	if res := finish(1); res.Unlocked || profile.UnlockedTier(subject.Name) != 2 {
		t.Fatalf("replaying tier 1 advanced the counter to %d", profile.UnlockedTier(subject.Name))
	}
	finish(2)
	if got := profile.UnlockedTier(subject.Name); got != 3 {
		t.Fatalf("expected tier 3 unlocked, got %d", got)
	}
	if res := finish(3); res.Unlocked || profile.UnlockedTier(subject.Name) != 3 {
		t.Fatalf("last tier must not exceed tier count, got %d", profile.UnlockedTier(subject.Name))
	}
}

func TestLockedTierBlocked(t *testing.T) {
	eng := New(DefaultRules(), rand.New(rand.NewSource(1)))
	profile := domain.NewProfile("ana", domain.ProfileDefaults{})
	if _, err := eng.StartRound(profile, testSubject(5, 3), 2, time.Now()); !errors.Is(err, domain.ErrTierLocked) {
		t.Fatalf("expected locked, got %v", err)
	}
	if _, err := eng.StartRound(profile, testSubject(5, 3), 4, time.Now()); !errors.Is(err, domain.ErrTierOutOfRange) {
		t.Fatalf("expected out of range, got %v", err)
	}
}

func TestMasteryMonotonic(t *testing.T) {
	eng := New(Rules{DrawCount: 4, QuestionTime: time.Minute, PassPercent: 70}, rand.New(rand.NewSource(6)))
	subject := testSubject(4, 2)
	profile := domain.NewProfile("ana", domain.ProfileDefaults{})

	res, _ := eng.FinishRound(playRound(t, eng, profile, subject, 1, 4), &profile, time.Now())
	if !res.NewlyMastered || !profile.IsMastered(subject.Name, 1) {
		t.Fatalf("perfect round should master tier 1")
	}
	res, _ = eng.FinishRound(playRound(t, eng, profile, subject, 1, 0), &profile, time.Now())
	if res.NewlyMastered || !profile.IsMastered(subject.Name, 1) {
		t.Fatalf("failing round unmarked mastery")
	}
}

func TestFiftyFiftyScenario(t *testing.T) {
	for seed := int64(0); seed < 50; seed++ {
		eng := New(DefaultRules(), rand.New(rand.NewSource(seed)))
		profile := domain.NewProfile("ana", domain.ProfileDefaults{Lifelines: map[domain.LifelineKind]int{domain.LifelineFiftyFifty: 1}})
		round := fixedRound(domain.RoundQuestion{QuestionID: "q", Options: []string{"A", "B", "C", "D"}, Correct: 2})

		res, err := eng.UseLifeline(round, &profile, domain.LifelineFiftyFifty)
		if err != nil || !res.Applied {
			t.Fatalf("seed %d: lifeline not applied: %+v %v", seed, res, err)
		}
		if len(res.Hidden) != 2 || slices.Contains(res.Hidden, 2) {
			t.Fatalf("seed %d: hidden %v", seed, res.Hidden)
		}
		if profile.Lifelines[domain.LifelineFiftyFifty] != 0 {
			t.Fatalf("inventory not decremented")
		}
	}
}

func TestFiftyFiftyWhileFrozen(t *testing.T) {
	for seed := int64(0); seed < 20; seed++ {
		eng := New(DefaultRules(), rand.New(rand.NewSource(seed)))
		profile := domain.NewProfile("ana", domain.ProfileDefaults{Lifelines: map[domain.LifelineKind]int{
			domain.LifelineFreeze:     1,
			domain.LifelineFiftyFifty: 1,
		}})
		round := fixedRound(domain.RoundQuestion{QuestionID: "q", Options: []string{"A", "B", "C", "D"}, Correct: 1})

		if res, _ := eng.UseLifeline(round, &profile, domain.LifelineFreeze); !res.Applied {
			t.Fatalf("seed %d: freeze not applied: %+v", seed, res)
		}
		res, err := eng.UseLifeline(round, &profile, domain.LifelineFiftyFifty)
		if err != nil || !res.Applied {
			t.Fatalf("seed %d: fifty-fifty refused while frozen: %+v %v", seed, res, err)
		}
		if len(res.Hidden) != 2 || slices.Contains(res.Hidden, 1) {
			t.Fatalf("seed %d: hidden %v", seed, res.Hidden)
		}
		if round.Clock.State() != ClockFrozen {
			t.Fatalf("seed %d: fifty-fifty ended the freeze, state %v", seed, round.Clock.State())
		}
	}
}

func TestFiftyFiftyWithFewOptions(t *testing.T) {
	eng := New(DefaultRules(), rand.New(rand.NewSource(1)))
	profile := domain.NewProfile("ana", domain.ProfileDefaults{Lifelines: map[domain.LifelineKind]int{domain.LifelineFiftyFifty: 1}})
	round := fixedRound(domain.RoundQuestion{QuestionID: "q", Options: []string{"yes", "no"}, Correct: 0})
	res, _ := eng.UseLifeline(round, &profile, domain.LifelineFiftyFifty)
	if !res.Applied || !slices.Equal(res.Hidden, []int{1}) {
		t.Fatalf("expected only the single wrong option hidden, got %+v", res)
	}
}

func TestLifelineExhaustionIsNoop(t *testing.T) {
	eng := New(DefaultRules(), rand.New(rand.NewSource(1)))
	profile := domain.NewProfile("ana", domain.ProfileDefaults{Lifelines: map[domain.LifelineKind]int{
		domain.LifelineFreeze:     0,
		domain.LifelineFiftyFifty: 0,
	}})
	round := fixedRound(domain.RoundQuestion{QuestionID: "q", Options: []string{"A", "B", "C", "D"}, Correct: 0})

	for _, kind := range domain.LifelineKinds {
		res, err := eng.UseLifeline(round, &profile, kind)
		if err != nil {
			t.Fatalf("depleted lifeline should not error: %v", err)
		}
		if res.Applied || res.Reason != ReasonDepleted {
			t.Fatalf("%s applied with empty inventory: %+v", kind, res)
		}
	}
	if round.Clock.State() != ClockRunning || len(round.Clock.Hidden()) != 0 {
		t.Fatalf("depleted lifeline changed clock state")
	}
	if profile.Lifelines[domain.LifelineFreeze] != 0 || profile.Lifelines[domain.LifelineFiftyFifty] != 0 {
		t.Fatalf("inventory changed: %v", profile.Lifelines)
	}
}

func TestLifelineOncePerRoundAndNotAfterAnswer(t *testing.T) {
	eng := New(DefaultRules(), rand.New(rand.NewSource(1)))
	profile := domain.NewProfile("ana", domain.ProfileDefaults{Lifelines: map[domain.LifelineKind]int{domain.LifelineFreeze: 5}})
	round := fixedRound(
		domain.RoundQuestion{QuestionID: "q1", Options: []string{"A", "B", "C", "D"}, Correct: 0},
		domain.RoundQuestion{QuestionID: "q2", Options: []string{"A", "B", "C", "D"}, Correct: 0},
	)

	if res, _ := eng.UseLifeline(round, &profile, domain.LifelineFreeze); !res.Applied {
		t.Fatalf("first freeze should apply: %+v", res)
	}
	if round.Clock.State() != ClockFrozen {
		t.Fatalf("clock not frozen")
	}
	eng.RecordAnswer(round, 0)
	if res, _ := eng.UseLifeline(round, &profile, domain.LifelineFreeze); res.Applied || res.Reason != ReasonAnswered {
		t.Fatalf("lifeline after answer should be a no-op: %+v", res)
	}
	round.Advance()
	if res, _ := eng.UseLifeline(round, &profile, domain.LifelineFreeze); res.Applied || res.Reason != ReasonUsedThisRound {
		t.Fatalf("second freeze in round should be refused: %+v", res)
	}
	if profile.Lifelines[domain.LifelineFreeze] != 4 {
		t.Fatalf("inventory = %d, want 4", profile.Lifelines[domain.LifelineFreeze])
	}
}

func TestUnknownLifeline(t *testing.T) {
	eng := New(DefaultRules(), nil)
	profile := domain.NewProfile("ana", domain.ProfileDefaults{})
	round := fixedRound(domain.RoundQuestion{QuestionID: "q", Options: []string{"A", "B"}, Correct: 0})
	if _, err := eng.UseLifeline(round, &profile, "swap"); !errors.Is(err, domain.ErrUnknownLifeline) {
		t.Fatalf("expected unknown lifeline, got %v", err)
	}
}

func testSubject(poolSize, tiers int) domain.Subject {
	s := domain.Subject{Name: "Subject"}
	for t := 1; t <= tiers; t++ {
		tier := domain.Tier{Number: t, Title: fmt.Sprintf("Tier %d", t)}
		for i := 0; i < poolSize; i++ {
			tier.Questions = append(tier.Questions, domain.Question{
				ID:      fmt.Sprintf("t%d-q%d", t, i),
				Prompt:  fmt.Sprintf("Question %d", i),
				Options: []string{"a", "b", "c", "d"},
				Correct: i % 4,
			})
		}
		s.Tiers = append(s.Tiers, tier)
	}
	return s
}

func fixedRound(questions ...domain.RoundQuestion) *Round {
	return newRound(domain.Subject{Name: "Fixed", Tiers: []domain.Tier{{Number: 1}}}, 1, questions, 30*time.Second, time.Now())
}

// playRound answers the first `correct` questions right and the rest wrong.
func playRound(t *testing.T, eng *Engine, profile domain.Profile, subject domain.Subject, tier, correct int) *Round {
	t.Helper()
	round, err := eng.StartRound(profile, subject, tier, time.Now())
	if err != nil {
		t.Fatalf("start tier %d: %v", tier, err)
	}
	for i := range round.Questions {
		q, _ := round.Question()
		sel := q.Correct
		if i >= correct {
			sel = (q.Correct + 1) % len(q.Options)
		}
		if _, err := eng.RecordAnswer(round, sel); err != nil {
			t.Fatalf("answer: %v", err)
		}
		round.Advance()
	}
	return round
}
