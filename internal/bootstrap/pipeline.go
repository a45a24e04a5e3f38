// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package bootstrap

import (
	"fmt"
	"time"

	"github.com/AccelByte/extend-lifecycle-engine/pkg/action"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/intervention"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/metrics"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/pipeline"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/risk"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/rule"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/service"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/signal"
	"github.com/sirupsen/logrus"
)

// InitRiskScorer builds the churn scorer from the configured factor table and bands.
func InitRiskScorer(pipelineConfig *pipeline.Config) (*risk.Scorer, error) {
	scorer, err := risk.NewScorer(pipelineConfig.Factors(), pipelineConfig.Bands())
	if err != nil {
		return nil, fmt.Errorf("failed to build risk scorer: %w", err)
	}
	logrus.Infof("initialized risk scorer with %d factors", len(scorer.Factors()))
	return scorer, nil
}

// InitInterventionSelector builds the playbook and its selector.
func InitInterventionSelector(pipelineConfig *pipeline.Config) (*intervention.Selector, *intervention.Playbook, error) {
	playbook, err := intervention.NewPlaybook(pipelineConfig.Playbooks)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build playbook: %w", err)
	}
	logrus.Infof("initialized intervention selector with %d playbook entries", playbook.Count())
	return intervention.NewSelector(playbook), playbook, nil
}

// PipelineComponents groups everything the per-user pipeline runs on.
type PipelineComponents struct {
	Store      service.LifecycleStore
	Locker     service.UserLocker
	Aggregator *signal.Aggregator
	Scorer     *risk.Scorer
	Engine     *rule.Engine
	Selector   *intervention.Selector
	Executor   *action.Executor
	Recorder   *metrics.Recorder
}

// InitPipeline creates the per-user pipeline manager:
// Lock → Load → Signals → Risk → State machine → Selection → Commit → Dispatch
func InitPipeline(c PipelineComponents, pipelineConfig *pipeline.Config) *pipeline.Manager {
	lockTTL := time.Duration(pipelineConfig.Scheduler.LockTTLSeconds) * time.Second

	manager := pipeline.NewManager(
		c.Store,
		c.Locker,
		c.Aggregator,
		c.Scorer,
		c.Engine,
		c.Selector,
		c.Executor,
		pipeline.WithRecorder(c.Recorder),
		pipeline.WithLockTTL(lockTTL),
	)
	logrus.Infof("initialized pipeline manager")

	return manager
}
