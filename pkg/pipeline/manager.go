package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/AccelByte/extend-lifecycle-engine/pkg/action"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/common"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/intervention"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/metrics"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/risk"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/rule"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/service"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/signal"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/state"
)

// DefaultLockTTL bounds how long a crashed evaluation can block a user.
const DefaultLockTTL = time.Minute

// Manager orchestrates the per-user evaluation:
// Lock → Load → Signals → Risk → State machine → Selection → Commit → Dispatch
type Manager struct {
	store      service.LifecycleStore
	locker     service.UserLocker
	aggregator *signal.Aggregator
	scorer     *risk.Scorer
	engine     *rule.Engine
	selector   *intervention.Selector
	executor   *action.Executor
	recorder   *metrics.Recorder
	lockTTL    time.Duration
}

// Option customizes a Manager.
type Option func(*Manager)

// WithRecorder sets the metrics recorder.
func WithRecorder(r *metrics.Recorder) Option {
	return func(m *Manager) { m.recorder = r }
}

// WithLockTTL sets the per-user lock lifetime.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// NewManager creates a new pipeline manager with all required components.
func NewManager(
	store service.LifecycleStore,
	locker service.UserLocker,
	aggregator *signal.Aggregator,
	scorer *risk.Scorer,
	engine *rule.Engine,
	selector *intervention.Selector,
	executor *action.Executor,
	opts ...Option,
) *Manager {
	m := &Manager{
		store:      store,
		locker:     locker,
		aggregator: aggregator,
		scorer:     scorer,
		engine:     engine,
		selector:   selector,
		executor:   executor,
		lockTTL:    DefaultLockTTL,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Result is the outcome of one user evaluation.
type Result struct {
	UserID     string                  `json:"userId"`
	From       state.State             `json:"from"`
	To         state.State             `json:"to"`
	Transition *state.TransitionRecord `json:"transition,omitempty"`
	Deferred   []string                `json:"deferredRules,omitempty"`
	Risk       risk.Record             `json:"risk"`
	Verdicts   []intervention.Verdict  `json:"verdicts,omitempty"`
	Dispatch   *action.DispatchRequest `json:"dispatch,omitempty"`
	// Delivered is false when the dispatch stays in the outbox for redelivery.
	Delivered bool `json:"delivered"`
	DryRun    bool `json:"dryRun,omitempty"`
}

// Transitioned reports whether the evaluation moved the user to another state.
func (r *Result) Transitioned() bool {
	return r.Transition != nil
}

// Evaluate runs the full pipeline for one user and persists the outcome.
//
// The returned error wraps signal.ErrDataUnavailable, state.ErrInvalidState or
// service.ErrConcurrentModification so callers can decide whether to retry.
// A failed dispatch is not an error: the request stays in the outbox.
func (m *Manager) Evaluate(ctx context.Context, userID string, now time.Time) (*Result, error) {
	scope := common.UserScope(ctx, "Manager.Evaluate", userID)
	defer scope.Finish()
	ctx = scope.Ctx

	release, err := m.locker.Acquire(ctx, userID, m.lockTTL)
	if err != nil {
		scope.TraceError(err)
		return nil, err
	}
	defer release()

	rec, err := m.store.Load(ctx, userID)
	if err != nil {
		scope.TraceError(err)
		return nil, fmt.Errorf("failed to load user %s: %w", userID, err)
	}

	result, next, err := m.evaluate(ctx, scope, rec, now)
	if err != nil {
		scope.TraceError(err)
		return nil, err
	}

	if err := m.store.Commit(ctx, next, result.Dispatch); err != nil {
		scope.TraceError(err)
		return nil, fmt.Errorf("failed to commit user %s: %w", userID, err)
	}

	if result.Transition != nil {
		m.recorder.Transition(result.From.String(), result.To.String(), result.Transition.RuleID)
		scope.Log.Infof("transitioned %s -> %s by rule %s", result.From, result.To, result.Transition.RuleID)
	}
	m.recorder.RiskScore(string(result.Risk.Category), result.Risk.Score)

	if result.Dispatch != nil {
		result.Delivered = m.deliver(ctx, scope, result.Dispatch) == nil
	}

	return result, nil
}

// Preview runs the pipeline for one user without locking, writing or dispatching.
func (m *Manager) Preview(ctx context.Context, userID string, now time.Time) (*Result, error) {
	scope := common.UserScope(ctx, "Manager.Preview", userID)
	defer scope.Finish()

	rec, err := m.store.Load(scope.Ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user %s: %w", userID, err)
	}

	result, _, err := m.evaluate(scope.Ctx, scope, rec, now)
	if err != nil {
		return nil, err
	}
	result.DryRun = true
	return result, nil
}

// Redeliver dispatches an outbox entry left undelivered by an earlier pass.
// The attempt record was committed with the entry, so nothing is selected again.
//
// It holds the user lock like Evaluate. An entry whose lifecycle state no
// longer matches the stored state is dropped without dispatching.
func (m *Manager) Redeliver(ctx context.Context, req *action.DispatchRequest) error {
	scope := common.UserScope(ctx, "Manager.Redeliver", req.UserID)
	defer scope.Finish()
	ctx = scope.Ctx

	release, err := m.locker.Acquire(ctx, req.UserID, m.lockTTL)
	if err != nil {
		scope.TraceError(err)
		return err
	}
	defer release()

	rec, err := m.store.Load(ctx, req.UserID)
	if err != nil {
		scope.TraceError(err)
		return fmt.Errorf("failed to load user %s: %w", req.UserID, err)
	}

	if current := rec.Lifecycle.Current.String(); current != req.LifecycleState {
		if err := m.store.AckDispatch(ctx, req); err != nil {
			scope.TraceError(err)
			return err
		}
		m.recorder.Dispatch(req.Surface, metrics.DispatchDropped)
		scope.Log.Infof("dropped dispatch %s of %s: user moved from %s to %s", req.RequestID, req.InterventionID, req.LifecycleState, current)
		return nil
	}

	if err := m.deliver(ctx, scope, req); err != nil {
		return err
	}
	m.recorder.Dispatch(req.Surface, metrics.DispatchRedelivered)
	return nil
}

// PendingDispatches returns outbox entries awaiting delivery.
func (m *Manager) PendingDispatches(ctx context.Context, limit int64) ([]*action.DispatchRequest, error) {
	return m.store.PendingDispatches(ctx, limit)
}

// evaluate computes the next record from rec without side effects beyond the
// signal read.
func (m *Manager) evaluate(ctx context.Context, scope *common.Scope, rec *service.UserRecord, now time.Time) (*Result, *service.UserRecord, error) {
	snap, err := m.aggregator.Aggregate(ctx, rec.UserID, now)
	if err != nil {
		return nil, nil, err
	}

	riskRecord := m.scorer.Score(snap, now)
	values := snap.Values()
	values[signal.ChurnRiskScore] = riskRecord.Score
	scope.Log.Debugf("churn risk %.2f (%s)", riskRecord.Score, riskRecord.Category)

	next := rec.Clone()
	if rec.Version == 0 {
		// never stored: the user enters the initial state this cycle
		next.Lifecycle = state.Initial(now)
	}
	transition, decision, err := m.engine.Step(&next.Lifecycle, values, now)
	if err != nil {
		return nil, nil, fmt.Errorf("user %s: %w", rec.UserID, err)
	}
	if transition != nil {
		next.History = state.AppendHistory(next.History, *transition)
	}
	next.Risk = &riskRecord
	next.UpdatedAt = now

	result := &Result{
		UserID:     rec.UserID,
		From:       rec.Lifecycle.Current,
		To:         next.Lifecycle.Current,
		Transition: transition,
		Deferred:   decision.Deferred,
		Risk:       riskRecord,
	}

	// selection sees the state after this cycle's transition
	in := intervention.SelectionInput{
		UserID:       rec.UserID,
		Lifecycle:    next.Lifecycle,
		RiskCategory: riskRecord.Category,
		Attempts:     next.Attempts,
		Values:       values,
		Now:          now,
	}
	result.Verdicts = m.selector.Explain(in)

	entry := m.selector.Select(in)
	if entry == nil {
		scope.Log.Debugf("no intervention eligible in state %s: %+v", next.Lifecycle.Current, result.Verdicts)
		return result, next, nil
	}

	next.Attempts[entry.ID] = next.Attempts[entry.ID].Fired(entry.ID, now)
	result.Dispatch = action.NewDispatchRequest(
		rec.UserID,
		entry.ID,
		entry.Surface,
		entry.MessageTemplateRef,
		next.Lifecycle.Current.String(),
		string(riskRecord.Category),
		now,
	)
	scope.Log.Infof("selected intervention %s via %s", entry.ID, entry.Surface)

	return result, next, nil
}

func (m *Manager) deliver(ctx context.Context, scope *common.Scope, req *action.DispatchRequest) error {
	if _, err := m.executor.Dispatch(ctx, req); err != nil {
		m.recorder.Dispatch(req.Surface, metrics.DispatchFailed)
		scope.Log.Warnf("dispatch %s of %s left in outbox: %v", req.RequestID, req.InterventionID, err)
		return err
	}
	m.recorder.Dispatch(req.Surface, metrics.DispatchDelivered)

	if err := m.store.AckDispatch(ctx, req); err != nil {
		// delivered but still queued; the next pass delivers it again
		scope.Log.Warnf("failed to ack dispatch %s: %v", req.RequestID, err)
	}
	return nil
}
