// Package risk computes the 0-100 churn risk score from weighted behavioral factors.
//
// Each factor normalizes its raw signal against a high-risk threshold, so a raw value
// at or beyond the threshold contributes its full weight. The weighted sum is
// clamped to [0, 100] and mapped onto a category band.
package risk

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/AccelByte/extend-lifecycle-engine/pkg/signal"
)

// Category is the churn risk band.
type Category string

const (
	CategoryLow      Category = "low"
	CategoryMedium   Category = "medium"
	CategoryHigh     Category = "high"
	CategoryCritical Category = "critical"
)

// ErrInvalidFactors is returned when a factor table cannot produce a valid score.
var ErrInvalidFactors = errors.New("invalid churn factors")

// weightTolerance is the allowed drift of the factor weight sum from 1.0.
const weightTolerance = 1e-6

// Rank orders categories from low (1) to critical (4). Unknown categories rank 0.
func (c Category) Rank() int {
	switch c {
	case CategoryLow:
		return 1
	case CategoryMedium:
		return 2
	case CategoryHigh:
		return 3
	case CategoryCritical:
		return 4
	}
	return 0
}

// AtLeast reports whether c is the same band as min or a riskier one.
func (c Category) AtLeast(min Category) bool {
	return c.Rank() >= min.Rank()
}

// ParseCategory validates a category name.
func ParseCategory(name string) (Category, error) {
	c := Category(strings.ToLower(name))
	if c.Rank() == 0 {
		return "", fmt.Errorf("unknown risk category %q", name)
	}
	return c, nil
}

// Factor is one weighted contributor to the churn score.
type Factor struct {
	Name              string  `yaml:"name" json:"name"`
	Signal            string  `yaml:"signal" json:"signal"`
	Weight            float64 `yaml:"weight" json:"weight"`
	HighRiskThreshold float64 `yaml:"high_risk_threshold" json:"highRiskThreshold"`
}

// DefaultFactors returns the standard five-factor table.
func DefaultFactors() []Factor {
	return []Factor{
		{Name: "session_frequency_decline", Signal: signal.SessionFrequencyDecline, Weight: 0.25, HighRiskThreshold: -0.4},
		{Name: "action_abandonment", Signal: signal.ActionAbandonmentRate, Weight: 0.25, HighRiskThreshold: 0.6},
		{Name: "nudge_dismissal_rate", Signal: signal.NudgeDismissalRate, Weight: 0.15, HighRiskThreshold: 0.7},
		{Name: "habit_loop_inactivity", Signal: signal.DaysSinceHabitLoopTrigger, Weight: 0.15, HighRiskThreshold: 14},
		{Name: "time_since_last_session", Signal: signal.DaysSinceLastSession, Weight: 0.20, HighRiskThreshold: 7},
	}
}

// Bands holds the inclusive lower bound of every band above low.
type Bands struct {
	Medium   float64 `yaml:"medium" json:"medium"`
	High     float64 `yaml:"high" json:"high"`
	Critical float64 `yaml:"critical" json:"critical"`
}

// DefaultBands returns low [0,30), medium [30,60), high [60,85), critical [85,100].
func DefaultBands() Bands {
	return Bands{Medium: 30, High: 60, Critical: 85}
}

// Categorize maps a score onto its band.
func (b Bands) Categorize(score float64) Category {
	switch {
	case score >= b.Critical:
		return CategoryCritical
	case score >= b.High:
		return CategoryHigh
	case score >= b.Medium:
		return CategoryMedium
	default:
		return CategoryLow
	}
}

// Validate checks the band bounds are increasing and within (0, 100].
func (b Bands) Validate() error {
	if !(0 < b.Medium && b.Medium < b.High && b.High < b.Critical && b.Critical <= 100) {
		return fmt.Errorf("risk bands must satisfy 0 < medium < high < critical <= 100, got %+v", b)
	}
	return nil
}

// ValidateFactors checks a factor table. Every problem found is reported.
func ValidateFactors(factors []Factor) error {
	var problems []string
	if len(factors) == 0 {
		problems = append(problems, "no factors configured")
	}

	seen := make(map[string]bool)
	sum := 0.0
	for _, f := range factors {
		if f.Name == "" {
			problems = append(problems, "factor with empty name")
		} else if seen[f.Name] {
			problems = append(problems, fmt.Sprintf("duplicate factor %s", f.Name))
		}
		seen[f.Name] = true

		if !signal.IsKnown(f.Signal) || f.Signal == signal.ChurnRiskScore {
			problems = append(problems, fmt.Sprintf("factor %s uses unknown signal %q", f.Name, f.Signal))
		}
		if f.HighRiskThreshold == 0 {
			problems = append(problems, fmt.Sprintf("factor %s has a zero high-risk threshold", f.Name))
		}
		if f.Weight < 0 {
			problems = append(problems, fmt.Sprintf("factor %s has negative weight %v", f.Name, f.Weight))
		}
		sum += f.Weight
	}

	if len(factors) > 0 && math.Abs(sum-1.0) > weightTolerance {
		problems = append(problems, fmt.Sprintf("factor weights sum to %v, expected 1.0", sum))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidFactors, strings.Join(problems, "; "))
	}
	return nil
}

// FactorScore is one factor's part of a Record.
type FactorScore struct {
	Name         string  `json:"name"`
	Raw          float64 `json:"raw"`
	Normalized   float64 `json:"normalized"`
	Contribution float64 `json:"contribution"`
}

// Record is the result of scoring one snapshot. Only the latest is persisted.
type Record struct {
	Score      float64       `json:"score"`
	Category   Category      `json:"category"`
	Factors    []FactorScore `json:"factors,omitempty"`
	ComputedAt time.Time     `json:"computedAt"`
}
