package rule

import (
	"fmt"
	"time"

	"github.com/AccelByte/extend-lifecycle-engine/pkg/state"
	"github.com/sirupsen/logrus"
)

// Decision is the outcome of evaluating the rules leaving a user's state.
type Decision struct {
	From state.State
	// Rule is the rule that fired, or nil when the user stays put.
	Rule *TransitionRule
	// Deferred lists rules whose conditions held but were inside their grace period.
	Deferred []string
}

// Transitioned reports whether a rule fired.
func (d Decision) Transitioned() bool {
	return d.Rule != nil
}

// To returns the resulting state.
func (d Decision) To() state.State {
	if d.Rule == nil {
		return d.From
	}
	return d.Rule.To()
}

// Engine is the lifecycle state machine.
type Engine struct {
	registry *Registry
}

// NewEngine creates a new state machine over the registered rules.
func NewEngine(registry *Registry) *Engine {
	return &Engine{
		registry: registry,
	}
}

// Evaluate selects the transition for a user, if any.
//
// Rules leaving the current state are considered in declared order. A rule
// fires when all of its conditions hold and its grace period has elapsed since
// the user entered the state. The first such rule wins.
func (e *Engine) Evaluate(current state.UserLifecycleState, values map[string]float64, now time.Time) (Decision, error) {
	if err := current.Validate(); err != nil {
		return Decision{}, err
	}

	decision := Decision{From: current.Current}
	for _, r := range e.registry.GetByFromState(current.Current) {
		if !r.Matches(values) {
			continue
		}
		if r.InGrace(current.EnteredAt, now) {
			logrus.Debugf("rule %s deferred: in grace period (entered %v, grace %v)", r.ID(), current.EnteredAt, r.GracePeriod())
			decision.Deferred = append(decision.Deferred, r.ID())
			continue
		}
		if !state.IsDeclaredEdge(r.From(), r.To()) {
			return Decision{}, fmt.Errorf("%w: rule %s uses undeclared edge %s->%s", state.ErrInvalidState, r.ID(), r.From(), r.To())
		}

		decision.Rule = r
		return decision, nil
	}

	return decision, nil
}

// Step evaluates and applies the decision to s. It returns the audit record
// of the transition, or nil when the user stays in the same state.
func (e *Engine) Step(s *state.UserLifecycleState, values map[string]float64, now time.Time) (*state.TransitionRecord, Decision, error) {
	decision, err := e.Evaluate(*s, values, now)
	if err != nil {
		return nil, decision, err
	}
	if !decision.Transitioned() {
		return nil, decision, nil
	}

	rec, err := s.Transition(decision.To(), decision.Rule.ID(), now)
	if err != nil {
		return nil, decision, err
	}
	return &rec, decision, nil
}

// GetRegistry returns the rule registry used by this engine.
func (e *Engine) GetRegistry() *Registry {
	return e.registry
}
