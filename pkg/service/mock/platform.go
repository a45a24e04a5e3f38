package mock

import (
	"context"
	"fmt"
	"sync"
)

// EntitlementGranter is a mock implementation of service.EntitlementGranter for testing
type EntitlementGranter struct {
	// GrantEntitlementFunc allows tests to customize the behavior
	GrantEntitlementFunc func(ctx context.Context, userID, itemID string, quantity int) error

	// Error is returned by every call when set
	Error error

	mu    sync.Mutex
	Calls []GrantEntitlementCall
}

// GrantEntitlementCall tracks parameters for GrantEntitlement calls
type GrantEntitlementCall struct {
	UserID   string
	ItemID   string
	Quantity int
}

// NewEntitlementGranter creates a new mock entitlement granter
func NewEntitlementGranter() *EntitlementGranter {
	return &EntitlementGranter{}
}

// GrantEntitlement records the call and returns the configured outcome
func (m *EntitlementGranter) GrantEntitlement(ctx context.Context, userID, itemID string, quantity int) error {
	m.mu.Lock()
	m.Calls = append(m.Calls, GrantEntitlementCall{UserID: userID, ItemID: itemID, Quantity: quantity})
	m.mu.Unlock()

	if m.GrantEntitlementFunc != nil {
		return m.GrantEntitlementFunc(ctx, userID, itemID, quantity)
	}
	return m.Error
}

// WithError sets an error to return
func (m *EntitlementGranter) WithError(err error) *EntitlementGranter {
	m.Error = err
	return m
}

// UserStatisticUpdater is a mock implementation of service.UserStatisticUpdater for testing
type UserStatisticUpdater struct {
	IncrementUserStatFunc func(ctx context.Context, userID, statCode string, inc float64) error

	Error error

	mu    sync.Mutex
	Calls []IncrementUserStatCall
}

// IncrementUserStatCall tracks parameters for IncrementUserStat calls
type IncrementUserStatCall struct {
	UserID   string
	StatCode string
	Inc      float64
}

// NewUserStatisticUpdater creates a new mock statistic updater
func NewUserStatisticUpdater() *UserStatisticUpdater {
	return &UserStatisticUpdater{}
}

// IncrementUserStat records the call and returns the configured outcome
func (m *UserStatisticUpdater) IncrementUserStat(ctx context.Context, userID, statCode string, inc float64) error {
	m.mu.Lock()
	m.Calls = append(m.Calls, IncrementUserStatCall{UserID: userID, StatCode: statCode, Inc: inc})
	m.mu.Unlock()

	if m.IncrementUserStatFunc != nil {
		return m.IncrementUserStatFunc(ctx, userID, statCode, inc)
	}
	return m.Error
}

// WithError sets an error to return
func (m *UserStatisticUpdater) WithError(err error) *UserStatisticUpdater {
	m.Error = err
	return m
}

// CallCount returns the number of recorded calls
func (m *UserStatisticUpdater) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// AssertIncrementCalled verifies IncrementUserStat was called for the user and stat code
func (m *UserStatisticUpdater) AssertIncrementCalled(userID, statCode string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, call := range m.Calls {
		if call.UserID == userID && call.StatCode == statCode {
			return nil
		}
	}
	return fmt.Errorf("expected IncrementUserStat called with userID=%s statCode=%s, but got calls: %v",
		userID, statCode, m.Calls)
}
