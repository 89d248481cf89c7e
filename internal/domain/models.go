package domain

import "fmt"

// Question is an immutable multiple-choice item drawn from a subject's pool.
type Question struct {
	ID          string   `json:"id" yaml:"id"`
	Prompt      string   `json:"prompt" yaml:"prompt"`
	Options     []string `json:"options" yaml:"options"`
	Correct     int      `json:"correct" yaml:"correct"`
	Explanation string   `json:"explanation,omitempty" yaml:"explanation,omitempty"`
}

// Validate checks the correct index is a position into Options.
func (q Question) Validate() error {
	if len(q.Options) < 2 {
		return fmt.Errorf("%w: %q needs at least two options", ErrInvalidQuestion, q.ID)
	}
	if q.Correct < 0 || q.Correct >= len(q.Options) {
		return fmt.Errorf("%w: %q correct index %d of %d", ErrInvalidQuestion, q.ID, q.Correct, len(q.Options))
	}
	return nil
}

// RoundQuestion is a Question whose options were shuffled for one presentation.
// Order[i] is the index into the source question's options shown at position i.
type RoundQuestion struct {
	QuestionID  string   `json:"questionId"`
	Prompt      string   `json:"prompt"`
	Options     []string `json:"options"`
	Correct     int      `json:"correct"`
	Explanation string   `json:"explanation,omitempty"`
	Order       []int    `json:"order"`
}

// Tier is one difficulty stage of a subject. Tiers are numbered from 1.
type Tier struct {
	Number    int        `json:"number" yaml:"number"`
	Title     string     `json:"title" yaml:"title"`
	DrawCount int        `json:"drawCount,omitempty" yaml:"draw_count,omitempty"` // 0 uses the configured default
	Generator string     `json:"generator,omitempty" yaml:"generator,omitempty"`
	Questions []Question `json:"questions" yaml:"questions"`
}

// Subject groups an ordered list of tiers.
type Subject struct {
	Name  string `json:"name" yaml:"name"`
	Icon  string `json:"icon,omitempty" yaml:"icon,omitempty"`
	Tiers []Tier `json:"tiers" yaml:"tiers"`
}

// TierCount returns the number of tiers in the subject.
func (s Subject) TierCount() int { return len(s.Tiers) }

// Tier returns the tier with the given 1-based number.
func (s Subject) Tier(number int) (Tier, error) {
	if number < 1 || number > len(s.Tiers) {
		return Tier{}, fmt.Errorf("%w: %s has %d tiers, got %d", ErrTierOutOfRange, s.Name, len(s.Tiers), number)
	}
	return s.Tiers[number-1], nil
}

// Validate enforces contiguous tier numbering and well-formed questions.
func (s Subject) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: subject without name", ErrInvalidQuestion)
	}
	for i, tier := range s.Tiers {
		if tier.Number != i+1 {
			return fmt.Errorf("%w: %s tier %d numbered %d", ErrTierOutOfRange, s.Name, i+1, tier.Number)
		}
		if len(tier.Questions) == 0 && tier.Generator == "" {
			return fmt.Errorf("%w: %s tier %d has an empty pool", ErrInvalidQuestion, s.Name, tier.Number)
		}
		for _, q := range tier.Questions {
			if err := q.Validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

// SubjectSummary is the catalog listing shown before a round starts.
type SubjectSummary struct {
	Name  string   `json:"name"`
	Icon  string   `json:"icon,omitempty"`
	Tiers []string `json:"tiers"`
}

// Summary drops question pools from the subject.
func (s Subject) Summary() SubjectSummary {
	titles := make([]string, 0, len(s.Tiers))
	for _, t := range s.Tiers {
		titles = append(titles, t.Title)
	}
	return SubjectSummary{Name: s.Name, Icon: s.Icon, Tiers: titles}
}
