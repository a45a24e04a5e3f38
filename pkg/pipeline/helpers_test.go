package pipeline

import (
	"context"
	"sync"
	"testing"

	"github.com/AccelByte/extend-lifecycle-engine/pkg/action"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/intervention"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/rule"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

// fakeAction records dispatches and fails while err is set.
type fakeAction struct {
	config action.ActionConfig

	mu       sync.Mutex
	err      error
	requests []*action.DispatchRequest
}

func newFakeAction(id string) *fakeAction {
	return &fakeAction{config: action.ActionConfig{ID: id, Type: "fake", Enabled: true}}
}

func (a *fakeAction) ID() string                  { return a.config.ID }
func (a *fakeAction) Name() string                { return "Fake" }
func (a *fakeAction) Config() action.ActionConfig { return a.config }

func (a *fakeAction) Dispatch(ctx context.Context, req *action.DispatchRequest) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.err != nil {
		return a.err
	}
	a.requests = append(a.requests, req)
	return nil
}

func (a *fakeAction) setErr(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.err = err
}

func (a *fakeAction) Requests() []*action.DispatchRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]*action.DispatchRequest(nil), a.requests...)
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return mr, client
}

func testConfig(t *testing.T) *Config {
	t.Helper()
	config, err := LoadConfig(writeConfig(t, engineConfig))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	return config
}

func buildRules(t *testing.T, config *Config) *rule.Registry {
	t.Helper()
	registry := rule.NewRegistry()
	if err := rule.RegisterRules(registry, config.Transitions); err != nil {
		t.Fatalf("RegisterRules() error = %v", err)
	}
	return registry
}

func buildPlaybook(t *testing.T, config *Config) *intervention.Playbook {
	t.Helper()
	playbook, err := intervention.NewPlaybook(config.Playbooks)
	if err != nil {
		t.Fatalf("NewPlaybook() error = %v", err)
	}
	return playbook
}

// engineConfig is a trimmed copy of config/lifecycle.yaml with fake dispatch surfaces.
const engineConfig = `
transitions:
  - id: activated_to_engaged
    from: activated
    to: engaged
    enabled: true
    grace_period_days: 7
    conditions:
      - { signal: sessions_per_week, op: ">=", value: 2 }
      - { signal: weekly_engagement_streak, op: ">=", value: 2 }
  - id: engaged_to_power_user
    from: engaged
    to: power_user
    enabled: true
    grace_period_days: 14
    conditions:
      - { signal: sessions_per_week, op: ">=", value: 5 }
  - id: engaged_to_at_risk
    from: engaged
    to: at_risk
    enabled: true
    grace_period_days: 3
    conditions:
      - { signal: churn_risk_score, op: ">=", value: 60 }
  - id: at_risk_to_dormant
    from: at_risk
    to: dormant
    enabled: true
    conditions:
      - { signal: days_since_last_session, op: ">=", value: 21 }

playbooks:
  - id: what_changed_reminder
    owning_state: at_risk
    message_template_ref: tmpl/what_changed
    surface: in_app_nudge
    timing_rule: immediate
    cooldown_hours: 72
    max_lifetime_fires: 3
    enabled: true
  - id: win_back_email
    owning_state: dormant
    message_template_ref: tmpl/win_back
    surface: email
    timing_rule: immediate
    cooldown_hours: 168
    enabled: true

actions:
  - id: in_app_nudge
    type: fake
    enabled: true
  - id: email
    type: fake
    enabled: true
`
