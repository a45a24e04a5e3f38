package action

import (
	"context"
	"sync"
)

// fakeAction fails its first failures dispatches with err.
type fakeAction struct {
	config   ActionConfig
	failures int
	err      error

	mu    sync.Mutex
	calls int
}

func newFakeAction(id string, enabled bool) *fakeAction {
	return &fakeAction{config: ActionConfig{ID: id, Type: "fake", Enabled: enabled}}
}

func (a *fakeAction) ID() string           { return a.config.ID }
func (a *fakeAction) Name() string         { return "Fake" }
func (a *fakeAction) Config() ActionConfig { return a.config }

func (a *fakeAction) Dispatch(ctx context.Context, req *DispatchRequest) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.calls++
	if a.calls <= a.failures {
		return a.err
	}
	return nil
}

func (a *fakeAction) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}
