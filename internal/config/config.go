// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package config

// Signal sources selectable with SIGNAL_SOURCE.
const (
	SignalSourceRedis     = "redis"
	SignalSourceStatistic = "statistic"
)

// Config holds all process configuration loaded from environment variables.
// Engine tables (rules, playbooks, factors) live in the YAML file at ConfigPath.
type Config struct {
	// Server configuration
	GRPCPort    int    `env:"GRPC_PORT" envDefault:"6565"`
	HTTPPort    int    `env:"HTTP_PORT" envDefault:"8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"dev"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"ExtendLifecycleEngine"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// AccelByte configuration (REQUIRED)
	ABNamespace    string `env:"AB_NAMESPACE,required"`
	ABBaseURL      string `env:"AB_BASE_URL,required"`
	ABClientID     string `env:"AB_CLIENT_ID,required"`
	ABClientSecret string `env:"AB_CLIENT_SECRET,required"`

	// Redis configuration
	RedisHost         string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort         string `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword     string `env:"REDIS_PASSWORD"`
	RedisMaxRetries   int    `env:"REDIS_MAX_RETRIES" envDefault:"5"`
	RedisRetryDelayMs int    `env:"REDIS_RETRY_DELAY_MS" envDefault:"1000"`

	// Engine configuration
	ConfigPath       string `env:"CONFIG_PATH" envDefault:"config/lifecycle.yaml"`
	SignalSource     string `env:"SIGNAL_SOURCE" envDefault:"redis"`
	SchedulerEnabled bool   `env:"SCHEDULER_ENABLED" envDefault:"true"`

	// Kafka configuration, needed only by kafka_publish actions
	KafkaBrokers  []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaClientID string   `env:"KAFKA_CLIENT_ID" envDefault:"extend-lifecycle-engine"`

	// Telemetry configuration
	OtelEnabled     bool   `env:"OTEL_ENABLED" envDefault:"true"`
	OtelServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"extend-lifecycle-engine"`
}
