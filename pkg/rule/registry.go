package rule

import (
	"fmt"
	"sync"

	"github.com/AccelByte/extend-lifecycle-engine/pkg/state"
)

// Registry manages transition rules in declared order.
// It provides thread-safe registration and lookup of rules.
type Registry struct {
	rules []*TransitionRule
	byID  map[string]*TransitionRule
	mu    sync.RWMutex
}

// NewRegistry creates a new empty rule registry.
func NewRegistry() *Registry {
	return &Registry{
		byID: make(map[string]*TransitionRule),
	}
}

// Register appends a rule to the registry.
// Returns an error if a rule with the same ID already exists.
func (r *Registry) Register(rule *TransitionRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[rule.ID()]; exists {
		return fmt.Errorf("rule %s already registered", rule.ID())
	}

	r.rules = append(r.rules, rule)
	r.byID[rule.ID()] = rule
	return nil
}

// Get returns a rule by ID.
// Returns nil if the rule doesn't exist.
func (r *Registry) Get(ruleID string) *TransitionRule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.byID[ruleID]
}

// GetAll returns all rules in declared order.
func (r *Registry) GetAll() []*TransitionRule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rules := make([]*TransitionRule, len(r.rules))
	copy(rules, r.rules)
	return rules
}

// GetByFromState returns the rules leaving from, in declared order.
func (r *Registry) GetByFromState(from state.State) []*TransitionRule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var rules []*TransitionRule
	for _, rule := range r.rules {
		if rule.From() == from {
			rules = append(rules, rule)
		}
	}
	return rules
}

// Count returns the number of registered rules.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.rules)
}
