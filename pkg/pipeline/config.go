package pipeline

import (
	"fmt"
	"os"
	"strings"

	"github.com/AccelByte/extend-lifecycle-engine/pkg/action"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/intervention"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/personalization"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/risk"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/rule"
	"gopkg.in/yaml.v3"
)

// Config represents the complete engine configuration.
type Config struct {
	Scheduler       SchedulerConfig                   `yaml:"scheduler"`
	Signals         SignalsConfig                     `yaml:"signals"`
	Personalization map[string]personalization.Policy `yaml:"personalization"`
	Transitions     []rule.RuleConfig                 `yaml:"transitions"`
	ChurnFactors    []risk.Factor                     `yaml:"churn_factors"`
	RiskBands       *risk.Bands                       `yaml:"risk_bands,omitempty"`
	Playbooks       []intervention.PlaybookConfig     `yaml:"playbooks"`
	Actions         []action.ActionConfig             `yaml:"actions"`
}

// SchedulerConfig holds the cycle defaults. Zero values fall back to defaults.
type SchedulerConfig struct {
	DetectionFrequencyHours int `yaml:"detection_frequency_hours"`
	Concurrency             int `yaml:"concurrency"`
	UserTimeoutSeconds      int `yaml:"user_timeout_seconds"`
	DataRetryMax            int `yaml:"data_retry_max"`
	DataRetryInitialMs      int `yaml:"data_retry_initial_ms"`
	RedeliveryBatch         int `yaml:"redelivery_batch"`
	LockTTLSeconds          int `yaml:"lock_ttl_seconds"`
}

// SignalsConfig maps metric names to AccelByte stat codes for the statistic source.
type SignalsConfig struct {
	StatCodes map[string]string `yaml:"stat_codes"`
}

// LoadConfig loads engine configuration from a YAML file.
// Supports environment variable expansion in the form ${VAR_NAME} or ${VAR_NAME:default}.
func LoadConfig(path string) (*Config, error) {
	// Read file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	// Expand environment variables
	expanded := expandEnvVars(string(data))

	// Parse YAML
	var config Config
	if err := yaml.Unmarshal([]byte(expanded), &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	return &config, nil
}

// Factors returns the configured churn factors, or the default table when none are set.
func (c *Config) Factors() []risk.Factor {
	if len(c.ChurnFactors) == 0 {
		return risk.DefaultFactors()
	}
	return c.ChurnFactors
}

// Bands returns the configured risk bands, or the default bands when none are set.
func (c *Config) Bands() risk.Bands {
	if c.RiskBands == nil {
		return risk.DefaultBands()
	}
	return *c.RiskBands
}

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}.
func expandEnvVars(s string) string {
	return os.Expand(s, func(key string) string {
		// Support ${VAR:default} syntax
		parts := strings.SplitN(key, ":", 2)
		varName := parts[0]
		defaultValue := ""
		if len(parts) == 2 {
			defaultValue = parts[1]
		}

		value := os.Getenv(varName)
		if value == "" {
			return defaultValue
		}
		return value
	})
}
