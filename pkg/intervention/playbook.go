package intervention

import (
	"fmt"
	"strings"
	"time"

	"github.com/AccelByte/extend-lifecycle-engine/pkg/risk"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/state"
	"github.com/sirupsen/logrus"
)

// DefaultMaxLifetimeFires caps firings when an entry sets no explicit limit.
const DefaultMaxLifetimeFires = 3

// PlaybookConfig is the configuration of a playbook entry.
type PlaybookConfig struct {
	ID                 string `yaml:"id" json:"id"`
	OwningState        string `yaml:"owning_state" json:"owningState"`
	MessageTemplateRef string `yaml:"message_template_ref" json:"messageTemplateRef"`
	Surface            string `yaml:"surface" json:"surface"`
	TimingRule         string `yaml:"timing_rule" json:"timingRule"`
	CooldownHours      int    `yaml:"cooldown_hours" json:"cooldownHours"`
	MaxLifetimeFires   int    `yaml:"max_lifetime_fires,omitempty" json:"maxLifetimeFires,omitempty"`
	MinRiskCategory    string `yaml:"min_risk_category,omitempty" json:"minRiskCategory,omitempty"`
	Enabled            bool   `yaml:"enabled" json:"enabled"`
}

// PlaybookEntry is a candidate intervention for a lifecycle state.
type PlaybookEntry struct {
	ID                 string
	OwningState        state.State
	MessageTemplateRef string
	Surface            string
	Timing             TimingRule
	Cooldown           time.Duration
	MaxLifetimeFires   int
	MinRisk            risk.Category
}

// Playbook holds entries grouped by owning state in declared order.
type Playbook struct {
	byState map[state.State][]PlaybookEntry
	byID    map[string]PlaybookEntry
}

// NewPlaybook builds a playbook from configuration. Every problem is reported.
func NewPlaybook(configs []PlaybookConfig) (*Playbook, error) {
	p := &Playbook{
		byState: make(map[state.State][]PlaybookEntry),
		byID:    make(map[string]PlaybookEntry),
	}

	var problems []string
	for _, c := range configs {
		if !c.Enabled {
			logrus.Infof("skipping disabled playbook entry: %s", c.ID)
			continue
		}

		entry, err := newEntry(c)
		if err != nil {
			problems = append(problems, err.Error())
			continue
		}
		if _, exists := p.byID[entry.ID]; exists {
			problems = append(problems, fmt.Sprintf("duplicate playbook entry %s", entry.ID))
			continue
		}

		p.byID[entry.ID] = entry
		p.byState[entry.OwningState] = append(p.byState[entry.OwningState], entry)
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("invalid playbook:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return p, nil
}

func newEntry(c PlaybookConfig) (PlaybookEntry, error) {
	if c.ID == "" {
		return PlaybookEntry{}, fmt.Errorf("playbook entry with empty ID")
	}

	owning, err := state.Parse(c.OwningState)
	if err != nil {
		return PlaybookEntry{}, fmt.Errorf("playbook entry %s: owning_state: %w", c.ID, err)
	}

	timing, err := ParseTimingRule(c.TimingRule)
	if err != nil {
		return PlaybookEntry{}, fmt.Errorf("playbook entry %s: %w", c.ID, err)
	}
	if timing.Kind == TimingDayOfState && timing.State != owning {
		return PlaybookEntry{}, fmt.Errorf("playbook entry %s: timing rule %s refers to a state other than %s", c.ID, timing, owning)
	}

	if c.CooldownHours < 0 {
		return PlaybookEntry{}, fmt.Errorf("playbook entry %s has negative cooldown", c.ID)
	}
	if c.Surface == "" {
		return PlaybookEntry{}, fmt.Errorf("playbook entry %s has no surface", c.ID)
	}

	maxFires := c.MaxLifetimeFires
	if maxFires == 0 {
		maxFires = DefaultMaxLifetimeFires
	}
	if maxFires < 0 {
		return PlaybookEntry{}, fmt.Errorf("playbook entry %s has negative max_lifetime_fires", c.ID)
	}

	var minRisk risk.Category
	if c.MinRiskCategory != "" {
		if minRisk, err = risk.ParseCategory(c.MinRiskCategory); err != nil {
			return PlaybookEntry{}, fmt.Errorf("playbook entry %s: %w", c.ID, err)
		}
	}

	return PlaybookEntry{
		ID:                 c.ID,
		OwningState:        owning,
		MessageTemplateRef: c.MessageTemplateRef,
		Surface:            c.Surface,
		Timing:             timing,
		Cooldown:           time.Duration(c.CooldownHours) * time.Hour,
		MaxLifetimeFires:   maxFires,
		MinRisk:            minRisk,
	}, nil
}

// ForState returns the entries owned by s in declared order.
func (p *Playbook) ForState(s state.State) []PlaybookEntry {
	return p.byState[s]
}

// Get returns the entry with the given id.
func (p *Playbook) Get(id string) (PlaybookEntry, bool) {
	e, ok := p.byID[id]
	return e, ok
}

// Surfaces returns every surface referenced by the playbook.
func (p *Playbook) Surfaces() map[string][]string {
	out := make(map[string][]string)
	for id, e := range p.byID {
		out[e.Surface] = append(out[e.Surface], id)
	}
	return out
}

// Count returns the number of enabled entries.
func (p *Playbook) Count() int {
	return len(p.byID)
}
