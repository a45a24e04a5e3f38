package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/AccelByte/extend-lifecycle-engine/pkg/action"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/intervention"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/personalization"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/risk"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/rule"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/signal"
)

// ConfigValidationError lists every problem found in a configuration.
type ConfigValidationError struct {
	Problems []string
}

func (e *ConfigValidationError) Error() string {
	return fmt.Sprintf("invalid configuration:\n  - %s", strings.Join(e.Problems, "\n  - "))
}

// problems collects validation messages. Multi-line messages from component
// constructors are split into one problem per line.
type problems []string

func (p *problems) add(format string, args ...interface{}) {
	*p = append(*p, fmt.Sprintf(format, args...))
}

func (p *problems) addErr(section string, err error) {
	for _, line := range strings.Split(err.Error(), "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "- "))
		if line == "" || strings.HasSuffix(line, ":") {
			continue
		}
		p.add("%s: %s", section, line)
	}
}

func (p problems) err() error {
	if len(p) == 0 {
		return nil
	}
	return &ConfigValidationError{Problems: p}
}

// Validate checks the whole configuration and reports every problem at once.
func (c *Config) Validate() error {
	var p problems

	c.validateScheduler(&p)
	c.validateSignals(&p)

	if _, err := personalization.NewResolver(c.Personalization); err != nil {
		p.addErr("personalization", err)
	}

	ruleIDs := make(map[string]bool)
	for i, rc := range c.Transitions {
		if rc.ID == "" {
			p.add("transitions[%d]: empty ID", i)
			continue
		}
		if ruleIDs[rc.ID] {
			p.add("transitions: duplicate rule ID %s", rc.ID)
			continue
		}
		ruleIDs[rc.ID] = true

		if _, err := rule.CreateRule(rc); err != nil {
			p.addErr("transitions", err)
		}
	}

	if err := risk.ValidateFactors(c.Factors()); err != nil {
		p.addErr("churn_factors", err)
	}
	if err := c.Bands().Validate(); err != nil {
		p.addErr("risk_bands", err)
	}

	actionIDs := make(map[string]bool)
	enabledActions := make(map[string]bool)
	for i, ac := range c.Actions {
		if ac.ID == "" {
			p.add("actions[%d]: empty ID", i)
			continue
		}
		if actionIDs[ac.ID] {
			p.add("actions: duplicate action ID %s", ac.ID)
			continue
		}
		actionIDs[ac.ID] = true
		if ac.Type == "" {
			p.add("actions: action %s has empty type", ac.ID)
		}
		if ac.Enabled {
			enabledActions[ac.ID] = true
		}
	}

	if _, err := intervention.NewPlaybook(c.Playbooks); err != nil {
		p.addErr("playbooks", err)
	}
	for _, pc := range c.Playbooks {
		if !pc.Enabled || pc.Surface == "" {
			continue
		}
		if !actionIDs[pc.Surface] {
			p.add("playbooks: entry %s references unknown action %s", pc.ID, pc.Surface)
		} else if !enabledActions[pc.Surface] {
			p.add("playbooks: entry %s references disabled action %s", pc.ID, pc.Surface)
		}
	}

	return p.err()
}

func (c *Config) validateScheduler(p *problems) {
	s := c.Scheduler
	fields := map[string]int{
		"detection_frequency_hours": s.DetectionFrequencyHours,
		"concurrency":               s.Concurrency,
		"user_timeout_seconds":      s.UserTimeoutSeconds,
		"data_retry_max":            s.DataRetryMax,
		"data_retry_initial_ms":     s.DataRetryInitialMs,
		"redelivery_batch":          s.RedeliveryBatch,
		"lock_ttl_seconds":          s.LockTTLSeconds,
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if fields[name] < 0 {
			p.add("scheduler: %s must not be negative, got %d", name, fields[name])
		}
	}
}

func (c *Config) validateSignals(p *problems) {
	raw := make(map[string]bool, len(signal.RawMetrics))
	for _, m := range signal.RawMetrics {
		raw[m] = true
	}

	metrics := make([]string, 0, len(c.Signals.StatCodes))
	for metric := range c.Signals.StatCodes {
		metrics = append(metrics, metric)
	}
	sort.Strings(metrics)

	seen := make(map[string]string)
	for _, metric := range metrics {
		code := c.Signals.StatCodes[metric]
		if !raw[metric] {
			p.add("signals: stat code %q maps to unknown metric %s", code, metric)
		}
		if code == "" {
			p.add("signals: metric %s has an empty stat code", metric)
			continue
		}
		if other, ok := seen[code]; ok {
			p.add("signals: stat code %q is used by both %s and %s", code, other, metric)
		}
		seen[code] = metric
	}
}

// ValidateWiring validates that the built components match the configuration.
// It checks that:
// - All enabled transitions in config have registered rules
// - All enabled actions in config have registered instances
// - Every playbook surface resolves to an enabled registered action
//
// This catches common mistakes like:
// - Forgetting to register an action type factory
// - An action whose dependency (Kafka producer, AccelByte client) is missing
func ValidateWiring(ruleRegistry *rule.Registry, actionRegistry *action.Registry, playbook *intervention.Playbook, config *Config) error {
	var p problems

	for _, rc := range config.Transitions {
		if !rc.Enabled {
			continue
		}
		if ruleRegistry.Get(rc.ID) == nil {
			p.add("transition '%s' (%s->%s) is enabled in config but not registered", rc.ID, rc.From, rc.To)
		}
	}

	for _, ac := range config.Actions {
		if !ac.Enabled {
			continue
		}
		if actionRegistry.Get(ac.ID) == nil {
			p.add("action '%s' (type=%s) is enabled in config but not registered", ac.ID, ac.Type)
		}
	}

	surfaces := playbook.Surfaces()
	names := make([]string, 0, len(surfaces))
	for surface := range surfaces {
		names = append(names, surface)
	}
	sort.Strings(names)

	for _, surface := range names {
		if actionRegistry.GetEnabled(surface) == nil {
			ids := surfaces[surface]
			sort.Strings(ids)
			p.add("surface '%s' used by %s has no enabled action", surface, strings.Join(ids, ", "))
		}
	}

	return p.err()
}
