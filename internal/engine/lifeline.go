package engine

import (
	"time"

	"trivia-service/internal/domain"
)

// Reasons a lifeline request was not applied.
const (
	ReasonDepleted      = "depleted"
	ReasonUsedThisRound = "used_this_round"
	ReasonAnswered      = "answered"
	ReasonAlreadyFrozen = "already_frozen"
	ReasonNothingToHide = "nothing_to_hide"
)

// LifelineResult reports what a lifeline request did. A request that was not
// applied changed nothing.
type LifelineResult struct {
	Kind      domain.LifelineKind `json:"kind"`
	Applied   bool                `json:"applied"`
	Reason    string              `json:"reason,omitempty"`
	Remaining int                 `json:"remaining"`
	Hidden    []int               `json:"hidden,omitempty"`
	FrozenFor time.Duration       `json:"frozenFor,omitempty"`
}

// UseLifeline applies kind to the current question, consuming one unit from
// the profile inventory and the round's single use of that kind.
func (e *Engine) UseLifeline(r *Round, profile *domain.Profile, kind domain.LifelineKind) (LifelineResult, error) {
	if !kind.Valid() {
		return LifelineResult{}, domain.ErrUnknownLifeline
	}
	res := LifelineResult{Kind: kind, Remaining: profile.Lifelines[kind]}

	q, ok := r.Question()
	switch {
	case res.Remaining <= 0:
		res.Reason = ReasonDepleted
		return res, nil
	case !ok || r.Answered() || r.Clock.State() == ClockAnswered:
		res.Reason = ReasonAnswered
		return res, nil
	case r.Used[kind]:
		res.Reason = ReasonUsedThisRound
		return res, nil
	}

	switch kind {
	case domain.LifelineFreeze:
		if !r.Clock.Freeze(e.rules.FreezeTime) {
			res.Reason = ReasonAlreadyFrozen
			return res, nil
		}
		res.FrozenFor = e.rules.FreezeTime
	case domain.LifelineFiftyFifty:
		hide := e.narrow(r.Clock, q)
		if len(hide) == 0 {
			res.Reason = ReasonNothingToHide
			return res, nil
		}
		r.Clock.Hide(hide...)
	}

	profile.Lifelines[kind]--
	r.Used[kind] = true
	res.Applied = true
	res.Remaining = profile.Lifelines[kind]
	res.Hidden = r.Clock.Hidden()
	return res, nil
}

// narrow picks up to two visible incorrect positions at random.
func (e *Engine) narrow(c *Clock, q domain.RoundQuestion) []int {
	wrong := make([]int, 0, len(q.Options))
	for i := range q.Options {
		if i != q.Correct && !c.IsHidden(i) {
			wrong = append(wrong, i)
		}
	}
	wrong = Shuffle(e.rng, wrong)
	return wrong[:min(2, len(wrong))]
}
