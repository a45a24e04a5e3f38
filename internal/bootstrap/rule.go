// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package bootstrap

import (
	"fmt"

	"github.com/AccelByte/extend-lifecycle-engine/pkg/pipeline"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/rule"
	"github.com/sirupsen/logrus"
)

// InitStateMachine builds the lifecycle state machine from the transitions in
// the engine config. Rules leaving one state keep their declared order.
func InitStateMachine(pipelineConfig *pipeline.Config) (*rule.Engine, *rule.Registry, error) {
	registry := rule.NewRegistry()
	if err := rule.RegisterRules(registry, pipelineConfig.Transitions); err != nil {
		return nil, nil, fmt.Errorf("failed to register transition rules: %w", err)
	}

	engine := rule.NewEngine(registry)
	logrus.Infof("initialized state machine with %d rules", registry.Count())

	return engine, registry, nil
}
