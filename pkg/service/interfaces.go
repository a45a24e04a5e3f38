package service

import (
	"context"
	"time"

	"github.com/AccelByte/extend-lifecycle-engine/pkg/action"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/signal"
)

// Service interfaces for external dependencies used by the engine and its
// dispatch actions.
//
// You may not need to have interface and go with direct struct usage,
// but having interfaces allows easier mocking for unit tests.

type EntitlementGranter interface {
	// GrantEntitlement grants an entitlement/item to a user
	GrantEntitlement(ctx context.Context, userID, itemID string, quantity int) error
}

type UserStatisticUpdater interface {
	// IncrementUserStat increments a user's statistic by inc
	IncrementUserStat(ctx context.Context, userID, statCode string, inc float64) error
}

// MetricsSource is the behavioral data provider read by the signal aggregator.
type MetricsSource = signal.MetricsSource

// LifecycleStore persists one record per user. Records never expire.
type LifecycleStore interface {
	Load(ctx context.Context, userID string) (*UserRecord, error)
	// Commit writes rec if the stored version still equals rec.Version, and
	// enqueues dispatch (when non-nil) in the same transaction.
	Commit(ctx context.Context, rec *UserRecord, dispatch *action.DispatchRequest) error
	PendingDispatches(ctx context.Context, limit int64) ([]*action.DispatchRequest, error)
	AckDispatch(ctx context.Context, req *action.DispatchRequest) error
	MarkDismissed(ctx context.Context, userID, interventionID string, at time.Time) error
	MarkInteracted(ctx context.Context, userID, interventionID string) error
}

// UserLocker provides per-user mutual exclusion across engine replicas.
type UserLocker interface {
	// Acquire returns a release func, or ErrConcurrentModification when the
	// user is held elsewhere.
	Acquire(ctx context.Context, userID string, ttl time.Duration) (func(), error)
}

// UserDirectory enumerates the users evaluated each cycle.
type UserDirectory interface {
	Enroll(ctx context.Context, userIDs ...string) error
	ListUsers(ctx context.Context) ([]string, error)
}

// SessionRecorder records user sessions for the Redis behavior store.
type SessionRecorder interface {
	RecordSession(ctx context.Context, userID string, at time.Time) error
}
