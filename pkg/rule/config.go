package rule

// RuleConfig is the configuration of a transition rule.
// This is typically loaded from YAML configuration files.
type RuleConfig struct {
	ID              string            `yaml:"id" json:"id"`
	From            string            `yaml:"from" json:"from"`
	To              string            `yaml:"to" json:"to"`
	Enabled         bool              `yaml:"enabled" json:"enabled"`
	GracePeriodDays int               `yaml:"grace_period_days" json:"gracePeriodDays"`
	Conditions      []ConditionConfig `yaml:"conditions" json:"conditions"`
}

// ConditionConfig is one required signal. Value may be a number or a boolean;
// booleans compare as 1 (true) and 0 (false).
type ConditionConfig struct {
	Signal string      `yaml:"signal" json:"signal"`
	Op     string      `yaml:"op" json:"op"`
	Value  interface{} `yaml:"value" json:"value"`
}

// GetValueFloat converts the configured value to a threshold.
func (c *ConditionConfig) GetValueFloat() (float64, bool) {
	switch v := c.Value.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// IsBool reports whether the configured value is a boolean.
func (c *ConditionConfig) IsBool() bool {
	_, ok := c.Value.(bool)
	return ok
}
