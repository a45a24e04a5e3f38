package builtin

import (
	"context"

	"github.com/AccelByte/extend-lifecycle-engine/pkg/action"
	"github.com/sirupsen/logrus"
)

const (
	// LogOnlyActionType records the dispatch in the log without delivering it.
	LogOnlyActionType = "log_only"
)

// LogOnlyAction is a no-op channel for surfaces that are not wired to a
// delivery service yet.
type LogOnlyAction struct {
	config action.ActionConfig
}

func NewLogOnlyAction(config action.ActionConfig) *LogOnlyAction {
	return &LogOnlyAction{
		config: config,
	}
}

func (a *LogOnlyAction) ID() string {
	return a.config.ID
}

func (a *LogOnlyAction) Name() string {
	return "Log Only"
}

func (a *LogOnlyAction) Config() action.ActionConfig {
	return a.config
}

func (a *LogOnlyAction) Dispatch(ctx context.Context, req *action.DispatchRequest) error {
	logrus.WithFields(logrus.Fields{
		"request_id":      req.RequestID,
		"user_id":         req.UserID,
		"intervention_id": req.InterventionID,
		"template":        req.MessageTemplateRef,
		"state":           req.LifecycleState,
	}).Infof("[NO-OP] would deliver intervention via %s", a.config.ID)
	return nil
}
