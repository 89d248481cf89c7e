package engine

import (
	"slices"

	"trivia-service/internal/domain"
)

// ComposeRound draws min(drawCount, pool size) distinct questions from the tier
// and shuffles each question's options.
//
// Generated tiers top up their static pool with fresh procedural questions.
func ComposeRound(rng Source, subject domain.Subject, tierNumber, drawCount int) ([]domain.RoundQuestion, error) {
	tier, err := subject.Tier(tierNumber)
	if err != nil {
		return nil, err
	}
	if drawCount < 0 {
		drawCount = 0
	}

	pool := tier.Questions
	if tier.Generator != "" && len(pool) < drawCount {
		generated, err := Generate(rng, tier.Generator, tier.Number, drawCount-len(pool))
		if err != nil {
			return nil, err
		}
		pool = append(slices.Clone(pool), generated...)
	}
	if drawCount > len(pool) {
		drawCount = len(pool)
	}

	// One shuffle randomizes both which questions are drawn and their order.
	drawn := Shuffle(rng, pool)[:drawCount]
	round := make([]domain.RoundQuestion, 0, len(drawn))
	for _, q := range drawn {
		if err := q.Validate(); err != nil {
			return nil, err
		}
		round = append(round, ShuffleOptions(rng, q))
	}
	return round, nil
}

// ShuffleOptions permutes q's options by position, so the correct answer is
// tracked even when two options share display text.
func ShuffleOptions(rng Source, q domain.Question) domain.RoundQuestion {
	order := Shuffle(rng, identity(len(q.Options)))
	options := make([]string, len(order))
	correct := -1
	for pos, src := range order {
		options[pos] = q.Options[src]
		if src == q.Correct {
			correct = pos
		}
	}
	return domain.RoundQuestion{
		QuestionID:  q.ID,
		Prompt:      q.Prompt,
		Options:     options,
		Correct:     correct,
		Explanation: q.Explanation,
		Order:       order,
	}
}
