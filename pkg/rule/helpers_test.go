package rule

import (
	"testing"

	"github.com/AccelByte/extend-lifecycle-engine/pkg/signal"
)

func cond(sig, op string, v interface{}) ConditionConfig {
	return ConditionConfig{Signal: sig, Op: op, Value: v}
}

// defaultRuleConfigs mirrors config/lifecycle.yaml.
func defaultRuleConfigs() []RuleConfig {
	return []RuleConfig{
		{ID: "new_to_activated", From: "new", To: "activated", Enabled: true,
			Conditions: []ConditionConfig{cond(signal.CapabilityTierUnlocked, ">=", 1)}},
		{ID: "activated_to_engaged", From: "activated", To: "engaged", Enabled: true, GracePeriodDays: 7,
			Conditions: []ConditionConfig{
				cond(signal.SessionsPerWeek, ">=", 2),
				cond(signal.WeeklyEngagementStreak, ">=", 2),
			}},
		{ID: "engaged_to_power_user", From: "engaged", To: "power_user", Enabled: true, GracePeriodDays: 14,
			Conditions: []ConditionConfig{
				cond(signal.SessionsPerWeek, ">=", 5),
				cond(signal.CapabilityTierUnlocked, ">=", 3),
				cond(signal.SignalScore, ">=", 70),
			}},
		{ID: "engaged_to_at_risk", From: "engaged", To: "at_risk", Enabled: true, GracePeriodDays: 3,
			Conditions: []ConditionConfig{cond(signal.ChurnRiskScore, ">=", 60)}},
		{ID: "at_risk_to_dormant", From: "at_risk", To: "dormant", Enabled: true,
			Conditions: []ConditionConfig{cond(signal.DaysSinceLastSession, ">=", 21)}},
		{ID: "dormant_to_returning", From: "dormant", To: "returning", Enabled: true,
			Conditions: []ConditionConfig{cond(signal.SessionsLast7d, ">=", 1)}},
		{ID: "returning_to_engaged", From: "returning", To: "engaged", Enabled: true, GracePeriodDays: 7,
			Conditions: []ConditionConfig{cond(signal.SessionsPerWeek, ">=", 2)}},
	}
}

func newTestEngine(t *testing.T, configs []RuleConfig) *Engine {
	t.Helper()
	registry := NewRegistry()
	if err := RegisterRules(registry, configs); err != nil {
		t.Fatalf("RegisterRules() error = %v", err)
	}
	return NewEngine(registry)
}
