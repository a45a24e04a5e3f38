// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package bootstrap

import (
	"github.com/AccelByte/extend-lifecycle-engine/pkg/metrics"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/pipeline"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/scheduler"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/service"
	"github.com/sirupsen/logrus"
)

// InitScheduler creates the cycle scheduler over the pipeline manager.
// With dryRun every user is previewed and nothing is written or dispatched.
func InitScheduler(
	manager *pipeline.Manager,
	directory service.UserDirectory,
	pipelineConfig *pipeline.Config,
	recorder *metrics.Recorder,
	dryRun bool,
) *scheduler.CycleScheduler {
	cfg := scheduler.ConfigFrom(pipelineConfig.Scheduler)
	cfg.DryRun = dryRun

	s := scheduler.NewCycleScheduler(manager, directory, cfg, scheduler.WithRecorder(recorder))
	logrus.Infof("initialized cycle scheduler (dry run: %v)", dryRun)
	return s
}
