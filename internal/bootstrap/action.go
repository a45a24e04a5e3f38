// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package bootstrap

import (
	"fmt"
	"time"

	"github.com/AccelByte/extend-lifecycle-engine/pkg/action"
	actionBuiltin "github.com/AccelByte/extend-lifecycle-engine/pkg/action/builtin"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/pipeline"
	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"
)

// InitActionExecutor creates the dispatch executor with the actions from the engine config.
//
// Steps to add a new dispatch channel:
// 1. Create the action in pkg/action/builtin/ (see log_only.go)
// 2. Register its type in pkg/action/builtin/init.go
// 3. Add an entry under actions: in config/lifecycle.yaml
// 4. Point playbook surfaces at its id
//
// Actions that need an external service get it through deps. An enabled
// action whose dependency is nil fails registration and start-up.
func InitActionExecutor(
	pipelineConfig *pipeline.Config,
	deps *actionBuiltin.Dependencies,
) (*action.Executor, *action.Registry, error) {
	actionBuiltin.RegisterActions(deps)

	registry := action.NewRegistry()
	if err := action.RegisterActions(registry, pipelineConfig.Actions); err != nil {
		return nil, nil, fmt.Errorf("failed to register actions: %w", err)
	}

	logrus.Infof("registered %d actions: %v", registry.Count(), registry.IDs())

	executor := action.NewExecutor(registry)
	logrus.Infof("initialized action executor")

	return executor, registry, nil
}

// NeedsKafka reports whether any enabled action publishes to Kafka.
func NeedsKafka(pipelineConfig *pipeline.Config) bool {
	for _, ac := range pipelineConfig.Actions {
		if ac.Enabled && ac.Type == actionBuiltin.KafkaPublishActionType {
			return true
		}
	}
	return false
}

// InitKafkaProducer creates the synchronous producer used by kafka_publish actions.
func InitKafkaProducer(brokers []string, clientID string) (sarama.SyncProducer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("KAFKA_BROKERS is required by kafka_publish actions")
	}

	config := sarama.NewConfig()
	config.ClientID = clientID
	config.Version = sarama.V2_1_0_0
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Idempotent = false
	config.Producer.Retry.Max = 3
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true
	config.Metadata.Retry.Max = 3
	config.Metadata.Retry.Backoff = 250 * time.Millisecond

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	logrus.Infof("Kafka producer initialized: brokers=%v", brokers)
	return producer, nil
}
