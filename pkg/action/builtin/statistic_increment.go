package builtin

import (
	"context"
	"fmt"

	"github.com/AccelByte/extend-lifecycle-engine/pkg/action"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/service"
	"github.com/sirupsen/logrus"
)

const (
	// StatisticIncrementActionType increments a user statistic that a downstream
	// service (e.g. a challenge event handler) listens to.
	StatisticIncrementActionType = "statistic_increment"
)

// StatisticIncrementAction bumps a user statistic to hand the intervention to
// another AGS extension.
type StatisticIncrementAction struct {
	config   action.ActionConfig
	updater  service.UserStatisticUpdater
	statCode string
	inc      float64
}

// NewStatisticIncrementAction creates a new statistic increment action.
func NewStatisticIncrementAction(config action.ActionConfig, updater service.UserStatisticUpdater) (*StatisticIncrementAction, error) {
	statCode := config.GetParameterString("stat_code", "")
	if statCode == "" {
		return nil, fmt.Errorf("%w: %s requires stat_code", action.ErrInvalidConfig, config.ID)
	}
	if updater == nil {
		return nil, fmt.Errorf("%w: %s requires a statistic updater", action.ErrMissingDependency, config.ID)
	}

	inc := config.GetParameterInt("increment", 1)
	logrus.Infof("creating statistic increment action: statCode=%s, increment=%d", statCode, inc)

	return &StatisticIncrementAction{
		config:   config,
		updater:  updater,
		statCode: statCode,
		inc:      float64(inc),
	}, nil
}

// ID returns the action identifier.
func (a *StatisticIncrementAction) ID() string {
	return a.config.ID
}

// Name returns the action name.
func (a *StatisticIncrementAction) Name() string {
	return "Increment User Statistic"
}

// Config returns the action configuration.
func (a *StatisticIncrementAction) Config() action.ActionConfig {
	return a.config
}

// Dispatch increments the configured statistic for the user.
func (a *StatisticIncrementAction) Dispatch(ctx context.Context, req *action.DispatchRequest) error {
	if err := a.updater.IncrementUserStat(ctx, req.UserID, a.statCode, a.inc); err != nil {
		return fmt.Errorf("failed to increment user %s statistic %s: %w", req.UserID, a.statCode, err)
	}

	logrus.Infof("incremented statistic %s for user %s (intervention %s)", a.statCode, req.UserID, req.InterventionID)
	return nil
}
