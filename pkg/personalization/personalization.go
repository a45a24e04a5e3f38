package personalization

import (
	"fmt"
	"strings"

	"github.com/AccelByte/extend-lifecycle-engine/pkg/state"
	"github.com/sirupsen/logrus"
)

// Policy is the UI behavior prescribed for a lifecycle state.
type Policy struct {
	ShowTutorials      bool   `yaml:"show_tutorials" json:"showTutorials"`
	GuidanceMode       string `yaml:"guidance_mode" json:"guidanceMode"`
	InsightDensity     string `yaml:"insight_density" json:"insightDensity"`
	FeatureProminence  string `yaml:"feature_prominence" json:"featureProminence"`
	MonetizationPolicy string `yaml:"monetization_policy" json:"monetizationPolicy"`
}

// Conservative is served whenever a state has no policy.
var Conservative = Policy{
	ShowTutorials:      false,
	GuidanceMode:       "minimal",
	InsightDensity:     "low",
	FeatureProminence:  "standard",
	MonetizationPolicy: "none",
}

var allowedValues = map[string][]string{
	"guidance_mode":       {"minimal", "contextual", "guided"},
	"insight_density":     {"low", "medium", "high"},
	"feature_prominence":  {"standard", "highlighted", "simplified"},
	"monetization_policy": {"none", "soft", "standard", "retention_offer"},
}

// Validate checks every field against the allowed vocabulary.
func (p Policy) Validate() error {
	fields := map[string]string{
		"guidance_mode":       p.GuidanceMode,
		"insight_density":     p.InsightDensity,
		"feature_prominence":  p.FeatureProminence,
		"monetization_policy": p.MonetizationPolicy,
	}

	var problems []string
	for field, value := range fields {
		if !contains(allowedValues[field], value) {
			problems = append(problems, fmt.Sprintf("%s=%q", field, value))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid policy values: %s", strings.Join(problems, ", "))
	}
	return nil
}

// Resolver maps a lifecycle state to its policy.
type Resolver struct {
	policies map[state.State]Policy
}

// NewResolver builds a resolver from a state name -> policy table.
func NewResolver(table map[string]Policy) (*Resolver, error) {
	r := &Resolver{policies: make(map[state.State]Policy, len(table))}

	var problems []string
	for name, p := range table {
		s, err := state.Parse(name)
		if err != nil {
			problems = append(problems, err.Error())
			continue
		}
		if err := p.Validate(); err != nil {
			problems = append(problems, fmt.Sprintf("policy %s: %v", name, err))
			continue
		}
		r.policies[s] = p
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("invalid personalization table: %s", strings.Join(problems, "; "))
	}
	return r, nil
}

// Resolve returns the policy for s, or Conservative when none is configured.
func (r *Resolver) Resolve(s state.State) Policy {
	if r != nil {
		if p, ok := r.policies[s]; ok {
			return p
		}
	}
	logrus.Warnf("no personalization policy for state %s, serving conservative policy", s)
	return Conservative
}

// Covered reports whether s has an explicit policy.
func (r *Resolver) Covered(s state.State) bool {
	_, ok := r.policies[s]
	return ok
}

func contains(values []string, v string) bool {
	for _, a := range values {
		if a == v {
			return true
		}
	}
	return false
}
