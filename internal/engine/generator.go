package engine

import (
	"fmt"
	"strconv"

	"trivia-service/internal/domain"
)

// GeneratorArithmetic produces "a op b" questions whose operand range grows with the tier.
const GeneratorArithmetic = "arithmetic"

// Generate builds n procedural questions with distinct prompts.
func Generate(rng Source, generator string, tier, n int) ([]domain.Question, error) {
	if generator != GeneratorArithmetic {
		return nil, fmt.Errorf("%w: unknown generator %q", domain.ErrInvalidQuestion, generator)
	}
	if tier < 1 {
		tier = 1
	}
	seen := make(map[string]struct{}, n)
	out := make([]domain.Question, 0, n)
	for attempts := 0; len(out) < n && attempts < n*20; attempts++ {
		q := arithmeticQuestion(rng, tier)
		if _, dup := seen[q.Prompt]; dup {
			continue
		}
		seen[q.Prompt] = struct{}{}
		q.ID = fmt.Sprintf("gen-%d-%d", tier, len(out)+1)
		out = append(out, q)
	}
	return out, nil
}

func arithmeticQuestion(rng Source, tier int) domain.Question {
	limit := 10 * tier
	a := rng.Intn(limit) + 1
	b := rng.Intn(limit) + 1

	var prompt string
	var answer int
	switch rng.Intn(3) {
	case 0:
		prompt, answer = fmt.Sprintf("What is %d + %d?", a, b), a+b
	case 1:
		if b > a {
			a, b = b, a
		}
		prompt, answer = fmt.Sprintf("What is %d - %d?", a, b), a-b
	default:
		a, b = a%(tier+9)+1, b%(tier+9)+1
		prompt, answer = fmt.Sprintf("What is %d × %d?", a, b), a*b
	}

	options := []string{strconv.Itoa(answer)}
	used := map[int]struct{}{answer: {}}
	for len(options) < 4 {
		delta := rng.Intn(2*tier+4) + 1
		if rng.Intn(2) == 0 {
			delta = -delta
		}
		candidate := answer + delta
		if candidate < 0 {
			continue
		}
		if _, dup := used[candidate]; dup {
			continue
		}
		used[candidate] = struct{}{}
		options = append(options, strconv.Itoa(candidate))
	}
	return domain.Question{Prompt: prompt, Options: options, Correct: 0}
}
