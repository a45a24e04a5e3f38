package rule

import (
	"fmt"
	"strings"
	"time"

	"github.com/AccelByte/extend-lifecycle-engine/pkg/state"
)

// Condition is one required signal of a transition rule.
type Condition struct {
	Signal    string
	Op        string
	Threshold float64
	compare   Comparator
}

// Holds reports whether the condition is satisfied by values.
// A missing signal is treated as zero.
func (c Condition) Holds(values map[string]float64) bool {
	return c.compare(values[c.Signal], c.Threshold)
}

func (c Condition) String() string {
	return fmt.Sprintf("%s %s %v", c.Signal, c.Op, c.Threshold)
}

// TransitionRule moves a user from one lifecycle state to another when all of
// its conditions hold and the grace period has elapsed.
type TransitionRule struct {
	id          string
	from        state.State
	to          state.State
	conditions  []Condition
	gracePeriod time.Duration
	config      RuleConfig
}

// ID returns unique rule identifier.
func (r *TransitionRule) ID() string { return r.id }

// From returns the state the rule applies to.
func (r *TransitionRule) From() state.State { return r.from }

// To returns the target state.
func (r *TransitionRule) To() state.State { return r.to }

// Conditions returns the required signals.
func (r *TransitionRule) Conditions() []Condition { return r.conditions }

// GracePeriod returns the minimum time in the source state before the rule may fire.
func (r *TransitionRule) GracePeriod() time.Duration { return r.gracePeriod }

// Config returns the rule's configuration.
func (r *TransitionRule) Config() RuleConfig { return r.config }

// Matches reports whether every condition holds.
func (r *TransitionRule) Matches(values map[string]float64) bool {
	for _, c := range r.conditions {
		if !c.Holds(values) {
			return false
		}
	}
	return true
}

// InGrace reports whether the user entered the source state too recently.
func (r *TransitionRule) InGrace(enteredAt, now time.Time) bool {
	return now.Sub(enteredAt) < r.gracePeriod
}

func (r *TransitionRule) String() string {
	parts := make([]string, len(r.conditions))
	for i, c := range r.conditions {
		parts[i] = c.String()
	}
	return fmt.Sprintf("%s: %s->%s when %s (grace %v)", r.id, r.from, r.to, strings.Join(parts, " && "), r.gracePeriod)
}
