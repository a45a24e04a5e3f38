package rule

import (
	"errors"
	"testing"
	"time"

	"github.com/AccelByte/extend-lifecycle-engine/pkg/signal"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/state"
)

var day = 24 * time.Hour

func TestEngine_ActivatedToEngaged(t *testing.T) {
	engine := newTestEngine(t, defaultRuleConfigs())
	now := time.Date(2026, 3, 20, 9, 0, 0, 0, time.UTC)

	s := state.UserLifecycleState{Current: state.Activated, EnteredAt: now.Add(-10 * day), Previous: state.New}
	values := map[string]float64{
		signal.SessionsPerWeek:        3,
		signal.WeeklyEngagementStreak: 2,
	}

	rec, decision, err := engine.Step(&s, values, now)
	if err != nil {
		t.Fatalf("Step() error = %v", err)
	}
	if rec == nil || decision.Rule.ID() != "activated_to_engaged" {
		t.Fatalf("expected activated_to_engaged to fire, got %+v", decision)
	}
	if s.Current != state.Engaged || s.Previous != state.Activated || !s.EnteredAt.Equal(now) {
		t.Errorf("state after step = %+v", s)
	}
}

func TestEngine_AtRiskToDormant(t *testing.T) {
	engine := newTestEngine(t, defaultRuleConfigs())
	now := time.Date(2026, 3, 20, 9, 0, 0, 0, time.UTC)

	s := state.UserLifecycleState{Current: state.AtRisk, EnteredAt: now.Add(-5 * day)}
	rec, _, err := engine.Step(&s, map[string]float64{signal.DaysSinceLastSession: 22}, now)
	if err != nil {
		t.Fatalf("Step() error = %v", err)
	}
	if rec == nil || s.Current != state.Dormant {
		t.Fatalf("expected dormant, got %v", s.Current)
	}
}

func TestEngine_GracePeriod(t *testing.T) {
	engine := newTestEngine(t, defaultRuleConfigs())
	now := time.Date(2026, 3, 20, 9, 0, 0, 0, time.UTC)
	values := map[string]float64{
		signal.SessionsPerWeek:        3,
		signal.WeeklyEngagementStreak: 2,
	}

	tests := []struct {
		name       string
		inState    time.Duration
		transition bool
	}{
		{name: "one day in state", inState: day, transition: false},
		{name: "just before grace ends", inState: 7*day - time.Second, transition: false},
		{name: "exactly at grace end", inState: 7 * day, transition: true},
		{name: "after grace", inState: 8 * day, transition: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := state.UserLifecycleState{Current: state.Activated, EnteredAt: now.Add(-tt.inState)}
			decision, err := engine.Evaluate(s, values, now)
			if err != nil {
				t.Fatalf("Evaluate() error = %v", err)
			}
			if decision.Transitioned() != tt.transition {
				t.Errorf("Transitioned() = %v, expected %v", decision.Transitioned(), tt.transition)
			}
			if !tt.transition && len(decision.Deferred) != 1 {
				t.Errorf("Deferred = %v, expected one deferred rule", decision.Deferred)
			}
		})
	}
}

func TestEngine_TieBreakFirstDeclaredWins(t *testing.T) {
	now := time.Date(2026, 3, 20, 9, 0, 0, 0, time.UTC)
	s := state.UserLifecycleState{Current: state.Engaged, EnteredAt: now.Add(-30 * day)}

	// satisfies both engaged_to_power_user and engaged_to_at_risk
	values := map[string]float64{
		signal.SessionsPerWeek:        6,
		signal.CapabilityTierUnlocked: 4,
		signal.SignalScore:            80,
		signal.ChurnRiskScore:         65,
	}

	decision, err := newTestEngine(t, defaultRuleConfigs()).Evaluate(s, values, now)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if decision.To() != state.PowerUser {
		t.Errorf("To() = %v, expected power_user (declared first)", decision.To())
	}

	// reversing declaration order reverses the winner
	configs := defaultRuleConfigs()
	configs[2], configs[3] = configs[3], configs[2]
	decision, err = newTestEngine(t, configs).Evaluate(s, values, now)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if decision.To() != state.AtRisk {
		t.Errorf("To() = %v, expected at_risk after reordering", decision.To())
	}
}

func TestEngine_NoMatchLeavesStateUnchanged(t *testing.T) {
	engine := newTestEngine(t, defaultRuleConfigs())
	now := time.Date(2026, 3, 20, 9, 0, 0, 0, time.UTC)
	entered := now.Add(-40 * day)

	s := state.UserLifecycleState{Current: state.PowerUser, EnteredAt: entered, Previous: state.Engaged}
	rec, decision, err := engine.Step(&s, map[string]float64{signal.ChurnRiskScore: 99}, now)
	if err != nil {
		t.Fatalf("Step() error = %v", err)
	}
	if rec != nil || decision.Transitioned() {
		t.Errorf("unexpected transition %+v", decision)
	}
	if s.Current != state.PowerUser || !s.EnteredAt.Equal(entered) || s.Previous != state.Engaged {
		t.Errorf("state changed without a transition: %+v", s)
	}
}

func TestEngine_OnlyDeclaredEdges(t *testing.T) {
	engine := newTestEngine(t, defaultRuleConfigs())
	now := time.Date(2026, 3, 20, 9, 0, 0, 0, time.UTC)

	everything := make(map[string]float64)
	for _, name := range signal.KnownSignals {
		everything[name] = 1000
	}

	for _, from := range state.All() {
		s := state.UserLifecycleState{Current: from, EnteredAt: now.Add(-365 * day)}
		decision, err := engine.Evaluate(s, everything, now)
		if err != nil {
			t.Fatalf("Evaluate(%v) error = %v", from, err)
		}
		if decision.Transitioned() && !state.IsDeclaredEdge(from, decision.To()) {
			t.Errorf("undeclared transition %v->%v", from, decision.To())
		}
	}
}

func TestEngine_InvalidState(t *testing.T) {
	engine := newTestEngine(t, defaultRuleConfigs())
	s := state.UserLifecycleState{Current: state.State(99), EnteredAt: time.Now()}

	_, err := engine.Evaluate(s, nil, time.Now())
	if !errors.Is(err, state.ErrInvalidState) {
		t.Errorf("Evaluate() error = %v, expected ErrInvalidState", err)
	}
}
