package rule

import (
	"fmt"
	"time"

	"github.com/AccelByte/extend-lifecycle-engine/pkg/signal"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/state"
	"github.com/sirupsen/logrus"
)

// Comparator compares an observed signal value with a threshold.
type Comparator func(actual, threshold float64) bool

// comparators stores registered comparators by operator
var comparators = map[string]Comparator{
	">=": func(actual, threshold float64) bool { return actual >= threshold },
	"<=": func(actual, threshold float64) bool { return actual <= threshold },
	"==": func(actual, threshold float64) bool { return actual == threshold },
}

// RegisterComparator registers an additional condition operator.
func RegisterComparator(op string, cmp Comparator) {
	comparators[op] = cmp
	logrus.Debugf("registered comparator: %s", op)
}

// CreateRule builds a transition rule from its configuration.
// Disabled rules yield (nil, nil).
func CreateRule(config RuleConfig) (*TransitionRule, error) {
	if !config.Enabled {
		logrus.Infof("skipping disabled rule: %s", config.ID)
		return nil, nil
	}

	if config.ID == "" {
		return nil, fmt.Errorf("rule with empty ID")
	}

	from, err := state.Parse(config.From)
	if err != nil {
		return nil, fmt.Errorf("rule %s from: %w", config.ID, err)
	}
	to, err := state.Parse(config.To)
	if err != nil {
		return nil, fmt.Errorf("rule %s to: %w", config.ID, err)
	}
	if !state.IsDeclaredEdge(from, to) {
		return nil, fmt.Errorf("rule %s: %w: edge %s->%s is not declared", config.ID, state.ErrInvalidState, from, to)
	}
	if len(config.Conditions) == 0 {
		return nil, fmt.Errorf("rule %s has no conditions", config.ID)
	}
	if config.GracePeriodDays < 0 {
		return nil, fmt.Errorf("rule %s has negative grace period", config.ID)
	}

	conditions := make([]Condition, 0, len(config.Conditions))
	for _, cc := range config.Conditions {
		c, err := createCondition(cc)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", config.ID, err)
		}
		conditions = append(conditions, c)
	}

	logrus.Infof("creating rule: id=%s, %s->%s, conditions=%d", config.ID, from, to, len(conditions))

	return &TransitionRule{
		id:          config.ID,
		from:        from,
		to:          to,
		conditions:  conditions,
		gracePeriod: time.Duration(config.GracePeriodDays) * 24 * time.Hour,
		config:      config,
	}, nil
}

func createCondition(cc ConditionConfig) (Condition, error) {
	if !signal.IsKnown(cc.Signal) {
		return Condition{}, fmt.Errorf("unknown signal %q", cc.Signal)
	}

	op := cc.Op
	if op == "" {
		op = ">="
	}
	if cc.IsBool() && op != "==" {
		return Condition{}, fmt.Errorf("boolean condition on %s must use ==", cc.Signal)
	}

	cmp, ok := comparators[op]
	if !ok {
		return Condition{}, fmt.Errorf("unknown operator %q on %s", op, cc.Signal)
	}

	threshold, ok := cc.GetValueFloat()
	if !ok {
		return Condition{}, fmt.Errorf("condition on %s has non-numeric value %v", cc.Signal, cc.Value)
	}

	return Condition{Signal: cc.Signal, Op: op, Threshold: threshold, compare: cmp}, nil
}

// CreateRules builds rules in declared order.
// Returns all successfully created rules and any errors encountered.
func CreateRules(configs []RuleConfig) ([]*TransitionRule, []error) {
	var rules []*TransitionRule
	var errors []error

	for _, config := range configs {
		r, err := CreateRule(config)
		if err != nil {
			errors = append(errors, fmt.Errorf("failed to create rule %s: %w", config.ID, err))
			continue
		}

		if r != nil {
			rules = append(rules, r)
		}
	}

	return rules, errors
}

// RegisterRules builds rules and registers them in declared order.
// Any rule that fails to build is fatal.
func RegisterRules(registry *Registry, configs []RuleConfig) error {
	rules, errs := CreateRules(configs)

	if len(errs) > 0 {
		for _, err := range errs {
			logrus.Errorf("rule creation error: %v", err)
		}
		return fmt.Errorf("failed to create %d rules: %w", len(errs), errs[0])
	}

	for _, r := range rules {
		if err := registry.Register(r); err != nil {
			return fmt.Errorf("failed to register rule %s: %w", r.ID(), err)
		}
	}

	logrus.Infof("registered %d rules", len(rules))
	return nil
}
