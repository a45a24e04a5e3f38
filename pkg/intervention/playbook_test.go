package intervention

import (
	"strings"
	"testing"
	"time"

	"github.com/AccelByte/extend-lifecycle-engine/pkg/state"
)

func TestNewPlaybook(t *testing.T) {
	p, err := NewPlaybook(defaultPlaybookConfigs())
	if err != nil {
		t.Fatalf("NewPlaybook() error = %v", err)
	}

	if p.Count() != 7 {
		t.Errorf("Count() = %d, expected 7", p.Count())
	}
	if len(p.ForState(state.AtRisk)) != 3 || len(p.ForState(state.Dormant)) != 2 || len(p.ForState(state.Returning)) != 2 {
		t.Error("unexpected per-state entry counts")
	}
	if len(p.ForState(state.Engaged)) != 0 {
		t.Error("engaged should have no playbook")
	}

	e, ok := p.Get("simplified_mode_suggestion")
	if !ok {
		t.Fatal("expected simplified_mode_suggestion")
	}
	if e.MaxLifetimeFires != DefaultMaxLifetimeFires {
		t.Errorf("MaxLifetimeFires = %d, expected default %d", e.MaxLifetimeFires, DefaultMaxLifetimeFires)
	}
	if e.Cooldown != 168*time.Hour {
		t.Errorf("Cooldown = %v, expected 168h", e.Cooldown)
	}

	if got := p.Surfaces()["comeback_challenge"]; len(got) != 2 {
		t.Errorf("Surfaces()[comeback_challenge] = %v, expected 2 entries", got)
	}
}

func TestNewPlaybook_Errors(t *testing.T) {
	configs := []PlaybookConfig{
		{ID: "a", OwningState: "lurking", Surface: "s", Enabled: true},
		{ID: "b", OwningState: "at_risk", Surface: "s", TimingRule: "day_3_of_dormant", Enabled: true},
		{ID: "c", OwningState: "at_risk", Surface: "s", TimingRule: "whenever", Enabled: true},
		{ID: "d", OwningState: "at_risk", Surface: "s", MinRiskCategory: "medium-high", Enabled: true},
		{ID: "e", OwningState: "at_risk", Enabled: true},
		{ID: "f", OwningState: "at_risk", Surface: "s", Enabled: true},
		{ID: "f", OwningState: "at_risk", Surface: "s", Enabled: true},
		{ID: "g", OwningState: "nope", Enabled: false},
	}

	_, err := NewPlaybook(configs)
	if err == nil {
		t.Fatal("expected error")
	}
	for _, id := range []string{"entry a", "entry b", "entry c", "entry d", "entry e", "duplicate playbook entry f"} {
		if !strings.Contains(err.Error(), id) {
			t.Errorf("error does not mention %q: %v", id, err)
		}
	}
	if strings.Contains(err.Error(), "entry g") {
		t.Errorf("disabled entry should be ignored: %v", err)
	}
}

func TestParseTimingRule(t *testing.T) {
	tests := []struct {
		raw   string
		kind  TimingKind
		day   int
		state state.State
		err   bool
	}{
		{raw: "immediate", kind: TimingImmediate},
		{raw: "", kind: TimingImmediate},
		{raw: "on_login_after_dormancy", kind: TimingLoginAfterDormancy},
		{raw: "day_3_of_at_risk", kind: TimingDayOfState, day: 3, state: state.AtRisk},
		{raw: "day_14_of_dormant", kind: TimingDayOfState, day: 14, state: state.Dormant},
		{raw: "day_x_of_dormant", err: true},
		{raw: "day_3_of_sleepy", err: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseTimingRule(tt.raw)
			if tt.err {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTimingRule() error = %v", err)
			}
			if got.Kind != tt.kind || got.Day != tt.day || got.State != tt.state {
				t.Errorf("ParseTimingRule(%q) = %+v", tt.raw, got)
			}
		})
	}
}

func TestAttemptRecord_Fired(t *testing.T) {
	first := now0.Add(-10 * day)
	dismissed := first.Add(time.Hour)
	a := AttemptRecord{InterventionID: "x", FirstFiredAt: first, FiredAt: first, FireCount: 1, DismissedAt: &dismissed}

	a = a.Fired("x", now0)
	if a.FireCount != 2 || !a.FiredAt.Equal(now0) || !a.FirstFiredAt.Equal(first) {
		t.Errorf("unexpected record after firing: %+v", a)
	}
	if a.DismissedAt != nil {
		t.Error("a new firing should clear the previous dismissal")
	}
}
