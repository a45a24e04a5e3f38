package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/AccelByte/extend-lifecycle-engine/pkg/action"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/intervention"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/risk"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/state"
)

var storeNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func TestLifecycleStore_LoadMissingReturnsNew(t *testing.T) {
	_, client := newTestRedis(t)
	store := NewRedisLifecycleStore(client)

	rec, err := store.Load(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if rec.Lifecycle.Current != state.New {
		t.Errorf("Current = %v, want %v", rec.Lifecycle.Current, state.New)
	}
	if rec.Version != 0 {
		t.Errorf("Version = %d, want 0", rec.Version)
	}
	if rec.Attempts == nil {
		t.Error("Attempts should be initialised")
	}
}

func TestLifecycleStore_CommitAndLoad(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewRedisLifecycleStore(client)
	ctx := context.Background()

	rec := NewUserRecord("user-1", storeNow)
	rec.Lifecycle = state.UserLifecycleState{Current: state.AtRisk, EnteredAt: storeNow, Previous: state.Engaged}
	rec.Risk = &risk.Record{Score: 72.5, Category: risk.CategoryHigh, ComputedAt: storeNow}
	rec.Attempts["what_changed_reminder"] = intervention.AttemptRecord{}.Fired("what_changed_reminder", storeNow)

	req := action.NewDispatchRequest("user-1", "what_changed_reminder", "in_app_nudge", "tmpl/what_changed", "at_risk", "high", storeNow)
	if err := store.Commit(ctx, rec, req); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if rec.Version != 1 {
		t.Errorf("Version after commit = %d, want 1", rec.Version)
	}
	if ttl := mr.TTL(makeLifecycleStoreKey("user-1")); ttl != 0 {
		t.Errorf("lifecycle record must not expire, TTL = %v", ttl)
	}

	got, err := store.Load(ctx, "user-1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Lifecycle.Current != state.AtRisk || got.Lifecycle.Previous != state.Engaged {
		t.Errorf("Lifecycle = %+v", got.Lifecycle)
	}
	if !got.Lifecycle.EnteredAt.Equal(storeNow) {
		t.Errorf("EnteredAt = %v, want %v", got.Lifecycle.EnteredAt, storeNow)
	}
	if got.Risk == nil || got.Risk.Category != risk.CategoryHigh {
		t.Errorf("Risk = %+v", got.Risk)
	}
	if got.Attempts["what_changed_reminder"].FireCount != 1 {
		t.Errorf("FireCount = %d, want 1", got.Attempts["what_changed_reminder"].FireCount)
	}

	pending, err := store.PendingDispatches(ctx, 10)
	if err != nil {
		t.Fatalf("PendingDispatches() error = %v", err)
	}
	if len(pending) != 1 || pending[0].RequestID != req.RequestID {
		t.Fatalf("pending = %+v, want the committed request", pending)
	}

	if err := store.AckDispatch(ctx, pending[0]); err != nil {
		t.Fatalf("AckDispatch() error = %v", err)
	}
	pending, _ = store.PendingDispatches(ctx, 10)
	if len(pending) != 0 {
		t.Errorf("expected empty outbox after ack, got %d", len(pending))
	}
}

func TestLifecycleStore_CommitRejectsStaleVersion(t *testing.T) {
	_, client := newTestRedis(t)
	store := NewRedisLifecycleStore(client)
	ctx := context.Background()

	first, _ := store.Load(ctx, "user-1")
	second, _ := store.Load(ctx, "user-1")

	if err := store.Commit(ctx, first, nil); err != nil {
		t.Fatalf("first Commit() error = %v", err)
	}

	req := action.NewDispatchRequest("user-1", "x", "in_app_nudge", "t", "new", "low", storeNow)
	err := store.Commit(ctx, second, req)
	if !errors.Is(err, ErrConcurrentModification) {
		t.Fatalf("stale Commit() error = %v, want ErrConcurrentModification", err)
	}
	if second.Version != 0 {
		t.Errorf("failed commit must not advance version, got %d", second.Version)
	}

	pending, _ := store.PendingDispatches(ctx, 10)
	if len(pending) != 0 {
		t.Errorf("failed commit must not enqueue a dispatch, got %d", len(pending))
	}
}

func TestLifecycleStore_LoadInvalidState(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewRedisLifecycleStore(client)

	mr.Set(makeLifecycleStoreKey("user-1"),
		`{"userId":"user-1","lifecycle":{"currentState":"hibernating","stateEnteredAt":"2026-03-01T00:00:00Z"},"version":3}`)

	_, err := store.Load(context.Background(), "user-1")
	if !errors.Is(err, state.ErrInvalidState) {
		t.Fatalf("Load() error = %v, want ErrInvalidState", err)
	}

	// the record is left untouched for inspection
	if !mr.Exists(makeLifecycleStoreKey("user-1")) {
		t.Error("invalid record must not be deleted")
	}
}

func TestLifecycleStore_PendingDispatchesOrderAndLimit(t *testing.T) {
	_, client := newTestRedis(t)
	store := NewRedisLifecycleStore(client)
	ctx := context.Background()

	for i, user := range []string{"c", "a", "b"} {
		rec := NewUserRecord(user, storeNow)
		req := action.NewDispatchRequest(user, "x", "in_app_nudge", "t", "at_risk", "low", storeNow.Add(time.Duration(i)*time.Minute))
		if err := store.Commit(ctx, rec, req); err != nil {
			t.Fatalf("Commit(%s) error = %v", user, err)
		}
	}

	pending, err := store.PendingDispatches(ctx, 2)
	if err != nil {
		t.Fatalf("PendingDispatches() error = %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("len(pending) = %d, want 2", len(pending))
	}
	if pending[0].UserID != "c" || pending[1].UserID != "a" {
		t.Errorf("pending order = [%s %s], want [c a]", pending[0].UserID, pending[1].UserID)
	}
}

func TestLifecycleStore_PendingDispatchesDropsUndecodable(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewRedisLifecycleStore(client)
	ctx := context.Background()

	rec := NewUserRecord("user-1", storeNow)
	req := action.NewDispatchRequest("user-1", "x", "in_app_nudge", "t", "at_risk", "low", storeNow)
	if err := store.Commit(ctx, rec, req); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	mr.HSet(lifecycleOutboxKey, "broken", "{not json")

	pending, err := store.PendingDispatches(ctx, 0)
	if err != nil {
		t.Fatalf("PendingDispatches() error = %v", err)
	}
	if len(pending) != 1 || pending[0].RequestID != req.RequestID {
		t.Fatalf("pending = %v, want only %s", pending, req.RequestID)
	}
	if mr.HGet(lifecycleOutboxKey, "broken") != "" {
		t.Error("undecodable entry should be removed from the outbox")
	}
}

func TestLifecycleStore_Feedback(t *testing.T) {
	_, client := newTestRedis(t)
	store := NewRedisLifecycleStore(client)
	ctx := context.Background()

	rec := NewUserRecord("user-1", storeNow)
	rec.Attempts["win_back_email"] = intervention.AttemptRecord{}.Fired("win_back_email", storeNow)
	if err := store.Commit(ctx, rec, nil); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	dismissedAt := storeNow.Add(2 * time.Hour)
	if err := store.MarkDismissed(ctx, "user-1", "win_back_email", dismissedAt); err != nil {
		t.Fatalf("MarkDismissed() error = %v", err)
	}
	if err := store.MarkInteracted(ctx, "user-1", "win_back_email"); err != nil {
		t.Fatalf("MarkInteracted() error = %v", err)
	}

	got, err := store.Load(ctx, "user-1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	attempt := got.Attempts["win_back_email"]
	if attempt.DismissedAt == nil || !attempt.DismissedAt.Equal(dismissedAt) {
		t.Errorf("DismissedAt = %v, want %v", attempt.DismissedAt, dismissedAt)
	}
	if !attempt.Interacted {
		t.Error("Interacted should be true")
	}
	if attempt.FireCount != 1 {
		t.Errorf("feedback must not change FireCount, got %d", attempt.FireCount)
	}
	if got.Version != 3 {
		t.Errorf("Version = %d, want 3", got.Version)
	}

	// the engine's copy is now stale
	rec.Lifecycle.Current = state.Activated
	if err := store.Commit(ctx, rec, nil); !errors.Is(err, ErrConcurrentModification) {
		t.Errorf("Commit() after feedback error = %v, want ErrConcurrentModification", err)
	}
}

func TestLifecycleStore_FeedbackUnknownIntervention(t *testing.T) {
	_, client := newTestRedis(t)
	store := NewRedisLifecycleStore(client)

	err := store.MarkDismissed(context.Background(), "user-1", "never_shown", storeNow)
	if !errors.Is(err, ErrUnknownIntervention) {
		t.Fatalf("MarkDismissed() error = %v, want ErrUnknownIntervention", err)
	}
}

func TestUserRecord_Clone(t *testing.T) {
	rec := NewUserRecord("user-1", storeNow)
	rec.Attempts["a"] = intervention.AttemptRecord{}.Fired("a", storeNow)
	rec.Risk = &risk.Record{Score: 10, Category: risk.CategoryLow}

	clone := rec.Clone()
	clone.Attempts["b"] = intervention.AttemptRecord{}
	clone.Risk.Score = 99

	if _, ok := rec.Attempts["b"]; ok {
		t.Error("clone shares attempts with original")
	}
	if rec.Risk.Score != 10 {
		t.Error("clone shares risk record with original")
	}
}
