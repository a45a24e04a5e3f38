package action

import (
	"context"
	"errors"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

// Executor dispatches requests to the action registered for their surface.
type Executor struct {
	registry *Registry
}

// NewExecutor creates a new action executor.
func NewExecutor(registry *Registry) *Executor {
	return &Executor{
		registry: registry,
	}
}

// Dispatch delivers req through the action named by req.Surface, retrying
// according to the action's retry policy.
func (e *Executor) Dispatch(ctx context.Context, req *DispatchRequest) (*ActionResult, error) {
	act := e.registry.Get(req.Surface)
	if act == nil {
		return nil, fmt.Errorf("%w: %s", ErrActionNotFound, req.Surface)
	}
	if !act.Config().Enabled {
		return nil, fmt.Errorf("%w: %s", ErrActionDisabled, req.Surface)
	}

	logrus.Infof("dispatching intervention %s to user %s via %s (request %s)",
		req.InterventionID, req.UserID, act.ID(), req.RequestID)

	attempts := 0
	operation := func() error {
		attempts++
		err := act.Dispatch(ctx, req)
		if err != nil {
			logrus.Warnf("action %s attempt %d failed: %v", act.ID(), attempts, err)
		}
		if errors.Is(err, ErrInvalidConfig) {
			return backoff.Permanent(err)
		}
		return err
	}

	err := backoff.Retry(operation, backoff.WithContext(act.Config().Retry.BackOff(), ctx))
	if err != nil {
		if attempts > 1 {
			err = fmt.Errorf("%w after %d attempts: %w", ErrMaxRetriesExceeded, attempts, err)
		}
		logrus.Errorf("action %s failed: %v", act.ID(), err)
		result := NewActionError(act.ID(), err)
		result.Attempts = attempts
		return result, err
	}

	logrus.Infof("action %s completed successfully", act.ID())
	result := NewActionResult(act.ID()).WithMetadata("request_id", req.RequestID)
	result.Attempts = attempts
	return result, nil
}

// GetRegistry returns the action registry used by this executor.
func (e *Executor) GetRegistry() *Registry {
	return e.registry
}
