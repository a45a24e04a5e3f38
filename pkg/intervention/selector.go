package intervention

import (
	"time"

	"github.com/AccelByte/extend-lifecycle-engine/pkg/risk"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/state"
)

// Exclusion reasons reported by Explain.
const (
	ReasonCooldown     = "cooldown"
	ReasonMaxFires     = "max_lifetime_fires"
	ReasonTiming       = "timing"
	ReasonRiskBelowMin = "risk_below_minimum"
	ReasonNotSelected  = "lower_priority"
	ReasonSelected     = "selected"
)

// SelectionInput is everything the selector needs for one user.
type SelectionInput struct {
	UserID       string
	Lifecycle    state.UserLifecycleState
	RiskCategory risk.Category
	Attempts     Attempts
	Values       map[string]float64
	Now          time.Time
}

// Verdict is the selector's view of one playbook entry.
type Verdict struct {
	InterventionID string `json:"interventionId"`
	Reason         string `json:"reason"`
}

// Selector picks at most one intervention per user per cycle.
// It performs no writes and is safe for concurrent use.
type Selector struct {
	playbook *Playbook
}

// NewSelector creates a new selector over a playbook.
func NewSelector(playbook *Playbook) *Selector {
	return &Selector{playbook: playbook}
}

// Playbook returns the selector's playbook.
func (s *Selector) Playbook() *Playbook {
	return s.playbook
}

// Select returns the first eligible entry of the user's current state in
// declared order, or nil when nothing may fire.
func (s *Selector) Select(in SelectionInput) *PlaybookEntry {
	for _, entry := range s.playbook.ForState(in.Lifecycle.Current) {
		if exclusion(entry, in) == "" {
			e := entry
			return &e
		}
	}
	return nil
}

// Explain reports the verdict for every entry of the user's current state.
func (s *Selector) Explain(in SelectionInput) []Verdict {
	entries := s.playbook.ForState(in.Lifecycle.Current)
	verdicts := make([]Verdict, 0, len(entries))

	selected := false
	for _, entry := range entries {
		reason := exclusion(entry, in)
		if reason == "" {
			if selected {
				reason = ReasonNotSelected
			} else {
				reason = ReasonSelected
				selected = true
			}
		}
		verdicts = append(verdicts, Verdict{InterventionID: entry.ID, Reason: reason})
	}
	return verdicts
}

// exclusion returns why entry cannot fire, or "" when it is eligible.
func exclusion(entry PlaybookEntry, in SelectionInput) string {
	attempt := in.Attempts[entry.ID]

	if attempt.InCooldown(entry.Cooldown, in.Now) {
		return ReasonCooldown
	}
	if attempt.Exhausted(entry.MaxLifetimeFires) {
		return ReasonMaxFires
	}
	if !entry.Timing.Satisfied(in) {
		return ReasonTiming
	}
	if entry.MinRisk != "" && !in.RiskCategory.AtLeast(entry.MinRisk) {
		return ReasonRiskBelowMin
	}
	return ""
}
