package domain

import (
	"slices"
	"time"
)

// ProfileVersion is bumped whenever the stored profile shape changes.
const ProfileVersion = 2

// LifelineKind names a consumable player aid.
type LifelineKind string

const (
	LifelineFreeze     LifelineKind = "freeze"
	LifelineFiftyFifty LifelineKind = "fifty_fifty"
)

// LifelineKinds lists every lifeline in display order.
var LifelineKinds = []LifelineKind{LifelineFreeze, LifelineFiftyFifty}

// Valid reports whether k is a known lifeline.
func (k LifelineKind) Valid() bool {
	return slices.Contains(LifelineKinds, k)
}

// ProfileDefaults seeds new profiles and fills fields missing from stored ones.
type ProfileDefaults struct {
	Coins     int
	Lifelines map[LifelineKind]int
	Avatar    string
}

// Profile is the persisted player state.
type Profile struct {
	Version      int                  `json:"version"`
	Name         string               `json:"name"`
	Coins        int                  `json:"coins"`
	Lifelines    map[LifelineKind]int `json:"lifelines"`
	Unlocked     map[string]int       `json:"unlocked"`
	Mastered     map[string][]int     `json:"mastered"`
	Avatar       string               `json:"avatar"`
	OwnedAvatars []string             `json:"ownedAvatars"`
	UpdatedAt    time.Time            `json:"updatedAt"`
}

// NewProfile returns a first-run profile.
func NewProfile(name string, defaults ProfileDefaults) Profile {
	p := Profile{Name: name, Coins: defaults.Coins}
	p.Normalize(defaults)
	return p
}

// Normalize fills fields that older stored shapes may lack and clamps counters.
func (p *Profile) Normalize(defaults ProfileDefaults) {
	p.Version = ProfileVersion
	if p.Coins < 0 {
		p.Coins = 0
	}
	if p.Lifelines == nil {
		p.Lifelines = make(map[LifelineKind]int, len(defaults.Lifelines))
	}
	for kind, count := range defaults.Lifelines {
		if _, ok := p.Lifelines[kind]; !ok {
			p.Lifelines[kind] = count
		}
	}
	for kind, count := range p.Lifelines {
		if count < 0 {
			p.Lifelines[kind] = 0
		}
	}
	if p.Unlocked == nil {
		p.Unlocked = make(map[string]int)
	}
	for subject, tier := range p.Unlocked {
		if tier < 1 {
			p.Unlocked[subject] = 1
		}
	}
	if p.Mastered == nil {
		p.Mastered = make(map[string][]int)
	}
	if p.Avatar == "" {
		p.Avatar = defaults.Avatar
	}
	if p.Avatar != "" && !slices.Contains(p.OwnedAvatars, p.Avatar) {
		p.OwnedAvatars = append(p.OwnedAvatars, p.Avatar)
	}
}

// UnlockedTier returns the highest playable tier for subject (at least 1).
func (p Profile) UnlockedTier(subject string) int {
	if tier, ok := p.Unlocked[subject]; ok && tier > 1 {
		return tier
	}
	return 1
}

// IsMastered reports whether subject+tier was cleared perfectly.
func (p Profile) IsMastered(subject string, tier int) bool {
	return slices.Contains(p.Mastered[subject], tier)
}

// MarkMastered records a perfect clear. It never removes existing marks.
func (p *Profile) MarkMastered(subject string, tier int) bool {
	if p.IsMastered(subject, tier) {
		return false
	}
	if p.Mastered == nil {
		p.Mastered = make(map[string][]int)
	}
	tiers := append(p.Mastered[subject], tier)
	slices.Sort(tiers)
	p.Mastered[subject] = tiers
	return true
}

// Owns reports whether the avatar was bought or granted.
func (p Profile) Owns(avatar string) bool {
	return slices.Contains(p.OwnedAvatars, avatar)
}

// Clone deep-copies the maps and slices so callers can mutate freely.
func (p Profile) Clone() Profile {
	out := p
	out.Lifelines = make(map[LifelineKind]int, len(p.Lifelines))
	for k, v := range p.Lifelines {
		out.Lifelines[k] = v
	}
	out.Unlocked = make(map[string]int, len(p.Unlocked))
	for k, v := range p.Unlocked {
		out.Unlocked[k] = v
	}
	out.Mastered = make(map[string][]int, len(p.Mastered))
	for k, v := range p.Mastered {
		out.Mastered[k] = slices.Clone(v)
	}
	out.OwnedAvatars = slices.Clone(p.OwnedAvatars)
	return out
}
