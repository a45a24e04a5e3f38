package builtin

import (
	"context"
	"fmt"

	"github.com/AccelByte/extend-lifecycle-engine/pkg/action"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/service"
	"github.com/sirupsen/logrus"
)

const (
	// GrantItemActionType grants a platform item as the intervention's reward.
	GrantItemActionType = "grant_item"
)

// GrantItemAction fulfills a store item for the user, e.g. a comeback bonus.
type GrantItemAction struct {
	config   action.ActionConfig
	granter  service.EntitlementGranter
	itemID   string
	quantity int
}

// NewGrantItemAction creates a new grant item action.
func NewGrantItemAction(config action.ActionConfig, granter service.EntitlementGranter) (*GrantItemAction, error) {
	itemID := config.GetParameterString("item_id", "")
	if itemID == "" {
		return nil, fmt.Errorf("%w: %s requires item_id", action.ErrInvalidConfig, config.ID)
	}
	if granter == nil {
		return nil, fmt.Errorf("%w: %s requires an entitlement granter", action.ErrMissingDependency, config.ID)
	}

	quantity := config.GetParameterInt("quantity", 1)
	logrus.Infof("creating grant item action: itemID=%s, quantity=%d", itemID, quantity)

	return &GrantItemAction{
		config:   config,
		granter:  granter,
		itemID:   itemID,
		quantity: quantity,
	}, nil
}

// ID returns the action identifier.
func (a *GrantItemAction) ID() string {
	return a.config.ID
}

// Name returns the action name.
func (a *GrantItemAction) Name() string {
	return "Grant Item"
}

// Config returns the action configuration.
func (a *GrantItemAction) Config() action.ActionConfig {
	return a.config
}

// Dispatch grants the configured item to the user.
func (a *GrantItemAction) Dispatch(ctx context.Context, req *action.DispatchRequest) error {
	logrus.Infof("granting item %s (quantity: %d) to user %s for intervention %s",
		a.itemID, a.quantity, req.UserID, req.InterventionID)

	if err := a.granter.GrantEntitlement(ctx, req.UserID, a.itemID, a.quantity); err != nil {
		return fmt.Errorf("failed to grant item: %w", err)
	}

	logrus.Infof("successfully granted item %s to user %s", a.itemID, req.UserID)
	return nil
}
