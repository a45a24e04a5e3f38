package intervention

import (
	"testing"
)

// defaultPlaybookConfigs mirrors config/lifecycle.yaml.
func defaultPlaybookConfigs() []PlaybookConfig {
	return []PlaybookConfig{
		{ID: "what_changed_reminder", OwningState: "at_risk", MessageTemplateRef: "tmpl/what_changed", Surface: "in_app_nudge",
			TimingRule: "immediate", CooldownHours: 72, MaxLifetimeFires: 3, Enabled: true},
		{ID: "streak_rescue_offer", OwningState: "at_risk", MessageTemplateRef: "tmpl/streak_rescue", Surface: "comeback_challenge",
			TimingRule: "day_3_of_at_risk", CooldownHours: 96, MaxLifetimeFires: 2, MinRiskCategory: "high", Enabled: true},
		{ID: "simplified_mode_suggestion", OwningState: "at_risk", MessageTemplateRef: "tmpl/simplified_mode", Surface: "in_app_nudge",
			TimingRule: "day_5_of_at_risk", CooldownHours: 168, Enabled: true},
		{ID: "win_back_email", OwningState: "dormant", MessageTemplateRef: "tmpl/win_back", Surface: "email",
			TimingRule: "immediate", CooldownHours: 168, MaxLifetimeFires: 3, Enabled: true},
		{ID: "comeback_bonus_offer", OwningState: "dormant", MessageTemplateRef: "tmpl/comeback_bonus", Surface: "comeback_challenge",
			TimingRule: "day_14_of_dormant", CooldownHours: 336, MaxLifetimeFires: 1, Enabled: true},
		{ID: "welcome_back_banner", OwningState: "returning", MessageTemplateRef: "tmpl/welcome_back", Surface: "in_app_nudge",
			TimingRule: "on_login_after_dormancy", CooldownHours: 24, MaxLifetimeFires: 1, Enabled: true},
		{ID: "whats_new_tour", OwningState: "returning", MessageTemplateRef: "tmpl/whats_new", Surface: "in_app_nudge",
			TimingRule: "immediate", CooldownHours: 72, MaxLifetimeFires: 2, Enabled: true},
	}
}

func newTestSelector(t *testing.T) *Selector {
	t.Helper()
	p, err := NewPlaybook(defaultPlaybookConfigs())
	if err != nil {
		t.Fatalf("NewPlaybook() error = %v", err)
	}
	return NewSelector(p)
}
