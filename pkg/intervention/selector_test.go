package intervention

import (
	"testing"
	"time"

	"github.com/AccelByte/extend-lifecycle-engine/pkg/risk"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/signal"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/state"
	"github.com/google/go-cmp/cmp"
)

var (
	day  = 24 * time.Hour
	now0 = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
)

func atRisk(daysIn int) state.UserLifecycleState {
	return state.UserLifecycleState{Current: state.AtRisk, EnteredAt: now0.Add(-time.Duration(daysIn) * day), Previous: state.Engaged}
}

func TestSelect_CooldownBlocksReminder(t *testing.T) {
	s := newTestSelector(t)

	in := SelectionInput{
		UserID:       "u1",
		Lifecycle:    atRisk(1),
		RiskCategory: risk.CategoryHigh,
		Attempts: Attempts{
			"what_changed_reminder": {InterventionID: "what_changed_reminder", FiredAt: now0.Add(-18 * time.Hour), FirstFiredAt: now0.Add(-18 * time.Hour), FireCount: 1},
		},
		Now: now0,
	}

	if got := s.Select(in); got != nil {
		t.Errorf("Select() = %s, expected nothing (reminder in cooldown, others not yet timed)", got.ID)
	}

	verdicts := s.Explain(in)
	expected := []Verdict{
		{InterventionID: "what_changed_reminder", Reason: ReasonCooldown},
		{InterventionID: "streak_rescue_offer", Reason: ReasonTiming},
		{InterventionID: "simplified_mode_suggestion", Reason: ReasonTiming},
	}
	if diff := cmp.Diff(expected, verdicts); diff != "" {
		t.Errorf("Explain() mismatch (-want +got):\n%s", diff)
	}
}

func TestSelect_CooldownBoundary(t *testing.T) {
	s := newTestSelector(t)
	in := SelectionInput{Lifecycle: atRisk(1), Now: now0}

	in.Attempts = Attempts{"what_changed_reminder": {FiredAt: now0.Add(-72*time.Hour + time.Second), FireCount: 1}}
	if got := s.Select(in); got != nil {
		t.Errorf("Select() = %s inside cooldown", got.ID)
	}

	in.Attempts = Attempts{"what_changed_reminder": {FiredAt: now0.Add(-72 * time.Hour), FireCount: 1}}
	if got := s.Select(in); got == nil || got.ID != "what_changed_reminder" {
		t.Errorf("Select() = %v, expected what_changed_reminder once cooldown elapsed", got)
	}
}

func TestSelect_DeclaredOrderAndTiming(t *testing.T) {
	s := newTestSelector(t)

	tests := []struct {
		name     string
		in       SelectionInput
		expected string
	}{
		{
			name:     "first entry wins",
			in:       SelectionInput{Lifecycle: atRisk(6), RiskCategory: risk.CategoryCritical, Now: now0},
			expected: "what_changed_reminder",
		},
		{
			name: "day 3 entry after reminder is exhausted",
			in: SelectionInput{Lifecycle: atRisk(3), RiskCategory: risk.CategoryHigh, Now: now0,
				Attempts: Attempts{"what_changed_reminder": {FiredAt: now0.Add(-100 * day), FireCount: 3}}},
			expected: "streak_rescue_offer",
		},
		{
			name: "risk below minimum skips to day 5 entry",
			in: SelectionInput{Lifecycle: atRisk(5), RiskCategory: risk.CategoryMedium, Now: now0,
				Attempts: Attempts{"what_changed_reminder": {FiredAt: now0.Add(-time.Hour), FireCount: 1}}},
			expected: "simplified_mode_suggestion",
		},
		{
			name: "dormant day 14",
			in: SelectionInput{
				Lifecycle: state.UserLifecycleState{Current: state.Dormant, EnteredAt: now0.Add(-14 * day), Previous: state.AtRisk},
				Attempts:  Attempts{"win_back_email": {FiredAt: now0.Add(-2 * day), FireCount: 2}},
				Now:       now0,
			},
			expected: "comeback_bonus_offer",
		},
		{
			name: "returning after dormancy",
			in: SelectionInput{
				Lifecycle: state.UserLifecycleState{Current: state.Returning, EnteredAt: now0, Previous: state.Dormant},
				Values:    map[string]float64{signal.SessionsLast7d: 1},
				Now:       now0,
			},
			expected: "welcome_back_banner",
		},
		{
			name: "returning without a session falls through",
			in: SelectionInput{
				Lifecycle: state.UserLifecycleState{Current: state.Returning, EnteredAt: now0, Previous: state.Dormant},
				Now:       now0,
			},
			expected: "whats_new_tour",
		},
		{
			name:     "states without a playbook",
			in:       SelectionInput{Lifecycle: state.UserLifecycleState{Current: state.Engaged, EnteredAt: now0}, Now: now0},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Select(tt.in)
			gotID := ""
			if got != nil {
				gotID = got.ID
			}
			if gotID != tt.expected {
				t.Errorf("Select() = %q, expected %q", gotID, tt.expected)
			}
		})
	}
}

func TestSelect_MaxLifetimeFires(t *testing.T) {
	s := newTestSelector(t)
	in := SelectionInput{
		Lifecycle: state.UserLifecycleState{Current: state.Dormant, EnteredAt: now0.Add(-30 * day)},
		Attempts: Attempts{
			"win_back_email":       {FiredAt: now0.Add(-60 * day), FireCount: 3},
			"comeback_bonus_offer": {FiredAt: now0.Add(-60 * day), FireCount: 1},
		},
		Now: now0,
	}

	if got := s.Select(in); got != nil {
		t.Errorf("Select() = %s, expected nothing once every entry is exhausted", got.ID)
	}
}

func TestSelect_Pure(t *testing.T) {
	s := newTestSelector(t)
	attempts := Attempts{"what_changed_reminder": {FiredAt: now0.Add(-100 * day), FireCount: 1}}
	in := SelectionInput{Lifecycle: atRisk(1), Attempts: attempts, Now: now0}
	before := attempts.Clone()

	first := s.Select(in)
	second := s.Select(in)
	if first == nil || second == nil || first.ID != second.ID {
		t.Fatalf("Select() not deterministic: %v vs %v", first, second)
	}
	if diff := cmp.Diff(before, attempts); diff != "" {
		t.Errorf("Select() mutated attempts (-want +got):\n%s", diff)
	}
}

func TestTimingRule_LoginAfterDormancy(t *testing.T) {
	rule, err := ParseTimingRule("on_login_after_dormancy")
	if err != nil {
		t.Fatalf("ParseTimingRule() error = %v", err)
	}

	tests := []struct {
		name             string
		previous         state.State
		daysInState      int
		sessionsLast7d   float64
		daysSinceSession float64
		expected         bool
	}{
		{"login on the day of return", state.Dormant, 0, 1, 0, true},
		{"login after return", state.Dormant, 5, 2, 1, true},
		{"login that ended dormancy", state.Dormant, 5, 1, 5, true},
		{"only sessions before return", state.Dormant, 5, 1, 6, false},
		{"no recent session", state.Dormant, 0, 0, 0, false},
		{"previous state not dormant", state.AtRisk, 0, 1, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := SelectionInput{
				Lifecycle: state.UserLifecycleState{
					Current:   state.Returning,
					EnteredAt: now0.Add(-time.Duration(tt.daysInState) * day),
					Previous:  tt.previous,
				},
				Values: map[string]float64{
					signal.SessionsLast7d:       tt.sessionsLast7d,
					signal.DaysSinceLastSession: tt.daysSinceSession,
				},
				Now: now0,
			}
			if got := rule.Satisfied(in); got != tt.expected {
				t.Errorf("Satisfied() = %v, expected %v", got, tt.expected)
			}
		})
	}
}
