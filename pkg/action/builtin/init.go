package builtin

import (
	"github.com/AccelByte/extend-lifecycle-engine/pkg/action"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/service"
	"github.com/IBM/sarama"
)

// Dependencies holds dependencies needed by built-in actions.
// A nil dependency makes the action types that need it fail at creation.
type Dependencies struct {
	EntitlementGranter service.EntitlementGranter
	UserStatUpdater    service.UserStatisticUpdater
	KafkaProducer      sarama.SyncProducer
}

// RegisterActions registers built-in action factories with dependencies.
func RegisterActions(deps *Dependencies) {
	if deps == nil {
		deps = &Dependencies{}
	}

	action.RegisterActionType(GrantItemActionType, func(config action.ActionConfig) (action.Action, error) {
		return NewGrantItemAction(config, deps.EntitlementGranter)
	})

	action.RegisterActionType(StatisticIncrementActionType, func(config action.ActionConfig) (action.Action, error) {
		return NewStatisticIncrementAction(config, deps.UserStatUpdater)
	})

	action.RegisterActionType(KafkaPublishActionType, func(config action.ActionConfig) (action.Action, error) {
		return NewKafkaPublishAction(config, deps.KafkaProducer)
	})

	action.RegisterActionType(LogOnlyActionType, func(config action.ActionConfig) (action.Action, error) {
		return NewLogOnlyAction(config), nil
	})
}
