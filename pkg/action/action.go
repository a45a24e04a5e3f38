package action

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Action delivers a selected intervention to the user through one surface.
// Actions are registered in a Registry and invoked by the Executor.
type Action interface {
	// ID returns unique action identifier. Playbook surfaces refer to it.
	ID() string

	// Name returns human-readable action name.
	Name() string

	// Dispatch delivers the request.
	// It may be called more than once for the same request ID and should be idempotent where the channel allows.
	Dispatch(ctx context.Context, req *DispatchRequest) error

	// Config returns the action's configuration.
	Config() ActionConfig
}

// DispatchRequest is the instruction handed to the dispatch channel.
type DispatchRequest struct {
	RequestID          string    `json:"requestId"`
	UserID             string    `json:"userId"`
	InterventionID     string    `json:"interventionId"`
	Surface            string    `json:"surface"`
	MessageTemplateRef string    `json:"messageTemplateRef"`
	LifecycleState     string    `json:"lifecycleState"`
	RiskCategory       string    `json:"riskCategory,omitempty"`
	RequestedAt        time.Time `json:"requestedAt"`
}

// NewDispatchRequest creates a request with a fresh request ID.
func NewDispatchRequest(userID, interventionID, surface, templateRef, lifecycleState, riskCategory string, now time.Time) *DispatchRequest {
	return &DispatchRequest{
		RequestID:          uuid.NewString(),
		UserID:             userID,
		InterventionID:     interventionID,
		Surface:            surface,
		MessageTemplateRef: templateRef,
		LifecycleState:     lifecycleState,
		RiskCategory:       riskCategory,
		RequestedAt:        now,
	}
}

// ActionResult represents the outcome of a dispatch.
type ActionResult struct {
	ActionID string
	Success  bool
	Attempts int
	Error    error
	Metadata map[string]interface{}
}

// NewActionResult creates a successful action result.
func NewActionResult(actionID string) *ActionResult {
	return &ActionResult{
		ActionID: actionID,
		Success:  true,
		Metadata: make(map[string]interface{}),
	}
}

// NewActionError creates a failed action result with an error.
func NewActionError(actionID string, err error) *ActionResult {
	return &ActionResult{
		ActionID: actionID,
		Success:  false,
		Error:    err,
		Metadata: make(map[string]interface{}),
	}
}

// WithMetadata adds metadata to the result and returns it for chaining.
func (r *ActionResult) WithMetadata(key string, value interface{}) *ActionResult {
	r.Metadata[key] = value
	return r
}
