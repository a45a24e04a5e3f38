package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/AccelByte/extend-lifecycle-engine/pkg/action"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/intervention"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/risk"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/state"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const (
	lifecycleStoreKeyPrefix = "lifecycle:user:"
	lifecycleOutboxKey      = "lifecycle:outbox"

	// feedback updates race only with the engine's own commit; a few tries suffice
	feedbackMaxTries = 3
)

// UserRecord is everything the engine keeps per user.
type UserRecord struct {
	UserID    string                   `json:"userId"`
	Lifecycle state.UserLifecycleState `json:"lifecycle"`
	Risk      *risk.Record             `json:"risk,omitempty"`
	Attempts  intervention.Attempts    `json:"attempts"`
	History   []state.TransitionRecord `json:"history,omitempty"`
	Version   int64                    `json:"version"`
	UpdatedAt time.Time                `json:"updatedAt"`
}

// NewUserRecord returns the record of a user never evaluated before.
// Version 0 means not stored.
func NewUserRecord(userID string, now time.Time) *UserRecord {
	return &UserRecord{
		UserID:    userID,
		Lifecycle: state.Initial(now),
		Attempts:  intervention.Attempts{},
	}
}

// Clone returns a deep copy so evaluation can work on a scratch record.
func (r *UserRecord) Clone() *UserRecord {
	out := *r
	out.Attempts = r.Attempts.Clone()
	out.History = append([]state.TransitionRecord(nil), r.History...)
	if r.Risk != nil {
		rk := *r.Risk
		rk.Factors = append([]risk.FactorScore(nil), r.Risk.Factors...)
		out.Risk = &rk
	}
	return &out
}

// RedisLifecycleStore implements LifecycleStore with one JSON value per user
// and a hash based outbox of dispatch requests.
type RedisLifecycleStore struct {
	client redis.UniversalClient
}

// NewRedisLifecycleStore creates a new Redis-backed lifecycle store.
func NewRedisLifecycleStore(client redis.UniversalClient) *RedisLifecycleStore {
	return &RedisLifecycleStore{client: client}
}

func makeLifecycleStoreKey(userID string) string {
	return fmt.Sprintf("%s%s", lifecycleStoreKeyPrefix, userID)
}

// Load returns the user's record, or a fresh one when none is stored.
// A stored record naming an unknown state fails with state.ErrInvalidState.
func (s *RedisLifecycleStore) Load(ctx context.Context, userID string) (*UserRecord, error) {
	return load(ctx, s.client, userID)
}

func load(ctx context.Context, c redis.Cmdable, userID string) (*UserRecord, error) {
	data, err := c.Get(ctx, makeLifecycleStoreKey(userID)).Bytes()
	if err == redis.Nil {
		logrus.Debugf("no lifecycle record for user %s, starting as %s", userID, state.New)
		return NewUserRecord(userID, time.Now()), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lifecycle record: %w", err)
	}

	var rec UserRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode lifecycle record of user %s: %w", userID, err)
	}
	if err := rec.Lifecycle.Validate(); err != nil {
		return nil, fmt.Errorf("user %s: %w", userID, err)
	}
	if rec.Attempts == nil {
		rec.Attempts = intervention.Attempts{}
	}
	rec.UserID = userID
	return &rec, nil
}

// storedVersion returns the version of the stored record, 0 when absent.
func storedVersion(ctx context.Context, c redis.Cmdable, key string) (int64, error) {
	data, err := c.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var v struct {
		Version int64 `json:"version"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return 0, err
	}
	return v.Version, nil
}

// Commit writes rec and the optional dispatch request in one transaction.
// It fails with ErrConcurrentModification when the stored version moved
// since rec was loaded. On success rec.Version is advanced.
func (s *RedisLifecycleStore) Commit(ctx context.Context, rec *UserRecord, dispatch *action.DispatchRequest) error {
	key := makeLifecycleStoreKey(rec.UserID)

	next := *rec
	next.Version = rec.Version + 1
	data, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("failed to marshal lifecycle record: %w", err)
	}

	var payload []byte
	if dispatch != nil {
		if payload, err = json.Marshal(dispatch); err != nil {
			return fmt.Errorf("failed to marshal dispatch request: %w", err)
		}
	}

	txf := func(tx *redis.Tx) error {
		current, err := storedVersion(ctx, tx, key)
		if err != nil {
			return fmt.Errorf("failed to read stored version: %w", err)
		}
		if current != rec.Version {
			return fmt.Errorf("%w: user %s at version %d, expected %d",
				ErrConcurrentModification, rec.UserID, current, rec.Version)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			if payload != nil {
				pipe.HSet(ctx, lifecycleOutboxKey, dispatch.RequestID, payload)
			}
			return nil
		})
		return err
	}

	if err := s.client.Watch(ctx, txf, key); err != nil {
		if errors.Is(err, redis.TxFailedErr) {
			return fmt.Errorf("%w: user %s: %v", ErrConcurrentModification, rec.UserID, err)
		}
		return err
	}

	rec.Version = next.Version
	return nil
}

// PendingDispatches returns up to limit undelivered requests, oldest first.
func (s *RedisLifecycleStore) PendingDispatches(ctx context.Context, limit int64) ([]*action.DispatchRequest, error) {
	entries, err := s.client.HGetAll(ctx, lifecycleOutboxKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read outbox: %w", err)
	}

	pending := make([]*action.DispatchRequest, 0, len(entries))
	for id, payload := range entries {
		var req action.DispatchRequest
		if err := json.Unmarshal([]byte(payload), &req); err != nil {
			logrus.Errorf("dropping undecodable outbox entry %s: %v", id, err)
			if err := s.client.HDel(ctx, lifecycleOutboxKey, id).Err(); err != nil {
				logrus.Warnf("failed to drop outbox entry %s: %v", id, err)
			}
			continue
		}
		pending = append(pending, &req)
	}

	sort.Slice(pending, func(i, j int) bool {
		if pending[i].RequestedAt.Equal(pending[j].RequestedAt) {
			return pending[i].RequestID < pending[j].RequestID
		}
		return pending[i].RequestedAt.Before(pending[j].RequestedAt)
	})
	if limit > 0 && int64(len(pending)) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

// AckDispatch removes a delivered request from the outbox.
func (s *RedisLifecycleStore) AckDispatch(ctx context.Context, req *action.DispatchRequest) error {
	if err := s.client.HDel(ctx, lifecycleOutboxKey, req.RequestID).Err(); err != nil {
		return fmt.Errorf("failed to ack dispatch %s: %w", req.RequestID, err)
	}
	return nil
}

// MarkDismissed records that the user dismissed the intervention at the given time.
func (s *RedisLifecycleStore) MarkDismissed(ctx context.Context, userID, interventionID string, at time.Time) error {
	return s.updateAttempt(ctx, userID, interventionID, func(a intervention.AttemptRecord) intervention.AttemptRecord {
		return a.Dismissed(at)
	})
}

// MarkInteracted records that the user engaged with the intervention.
func (s *RedisLifecycleStore) MarkInteracted(ctx context.Context, userID, interventionID string) error {
	return s.updateAttempt(ctx, userID, interventionID, func(a intervention.AttemptRecord) intervention.AttemptRecord {
		a.Interacted = true
		return a
	})
}

func (s *RedisLifecycleStore) updateAttempt(
	ctx context.Context,
	userID, interventionID string,
	update func(intervention.AttemptRecord) intervention.AttemptRecord,
) error {
	key := makeLifecycleStoreKey(userID)

	txf := func(tx *redis.Tx) error {
		rec, err := load(ctx, tx, userID)
		if err != nil {
			return err
		}
		attempt, ok := rec.Attempts[interventionID]
		if !ok {
			return fmt.Errorf("%w: user %s, intervention %s", ErrUnknownIntervention, userID, interventionID)
		}
		rec.Attempts[interventionID] = update(attempt)
		rec.Version++

		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal lifecycle record: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}

	var err error
	for i := 0; i < feedbackMaxTries; i++ {
		err = s.client.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
		logrus.Debugf("feedback update for user %s raced a commit, retrying", userID)
	}
	return fmt.Errorf("%w: user %s: %v", ErrConcurrentModification, userID, err)
}
