package app

import (
	"trivia-service/internal/domain"
	"trivia-service/internal/engine"
)

// QuestionView is a question as the player sees it: no answer key.
type QuestionView struct {
	ID      string   `json:"id"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
}

// RoundView is the client-facing snapshot of a round.
type RoundView struct {
	Subject   string                `json:"subject"`
	Tier      int                   `json:"tier"`
	Index     int                   `json:"index"`
	Total     int                   `json:"total"`
	Question  QuestionView          `json:"question"`
	Score     int                   `json:"score"`
	Streak    int                   `json:"streak"`
	Coins     int                   `json:"coins"`
	Remaining int                   `json:"remaining"` // whole seconds
	State     string                `json:"state"`
	Hidden    []int                 `json:"hidden,omitempty"`
	Used      []domain.LifelineKind `json:"used,omitempty"`
	Outcome   *domain.Outcome       `json:"outcome,omitempty"`
}

func newRoundView(r *engine.Round) RoundView {
	view := RoundView{
		Subject:   r.Subject,
		Tier:      r.Tier,
		Index:     r.Current,
		Total:     len(r.Questions),
		Score:     r.Score,
		Streak:    r.Streak,
		Coins:     r.Coins,
		Remaining: int(r.Clock.Remaining().Seconds()),
		State:     r.Clock.State().String(),
		Hidden:    r.Clock.Hidden(),
	}
	if q, ok := r.Question(); ok {
		view.Question = QuestionView{ID: q.QuestionID, Prompt: q.Prompt, Options: append([]string(nil), q.Options...)}
	}
	for _, kind := range domain.LifelineKinds {
		if r.Used[kind] {
			view.Used = append(view.Used, kind)
		}
	}
	if r.Answered() {
		outcome := r.Answers[r.Current]
		view.Outcome = &outcome
	}
	return view
}
