package service

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/AccelByte/extend-lifecycle-engine/pkg/signal"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const (
	behaviorMetricsKeyPrefix  = "behavior:metrics:"
	behaviorSessionsKeyPrefix = "behavior:sessions:"

	// sessionRetention covers the 30 day window plus a day of slack
	sessionRetention   = 31 * 24 * time.Hour
	sessionDayLayout   = "20060102"
	lastSessionField   = "last_session_unix"
	sessionWindowShort = 7
	sessionWindowLong  = 30
)

// RedisBehaviorStore is a MetricsSource backed by Redis.
//
// Counters produced by the behavioral pipeline live in the hash
// behavior:metrics:<user> (field = metric name), next to the timestamp of the
// latest session which never expires. Sessions are tracked per day in
// behavior:sessions:<user> (field = YYYYMMDD) so the session windows and
// days_since_last_session are computed at read time.
type RedisBehaviorStore struct {
	client redis.UniversalClient
}

// NewRedisBehaviorStore creates a new Redis-backed behavior store.
func NewRedisBehaviorStore(client redis.UniversalClient) *RedisBehaviorStore {
	return &RedisBehaviorStore{client: client}
}

func makeBehaviorMetricsKey(userID string) string {
	return fmt.Sprintf("%s%s", behaviorMetricsKeyPrefix, userID)
}

func makeBehaviorSessionsKey(userID string) string {
	return fmt.Sprintf("%s%s", behaviorSessionsKeyPrefix, userID)
}

// RecordSession counts one session for the user on the day of at.
func (s *RedisBehaviorStore) RecordSession(ctx context.Context, userID string, at time.Time) error {
	key := makeBehaviorSessionsKey(userID)
	day := at.UTC().Format(sessionDayLayout)

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HIncrBy(ctx, key, day, 1)
		pipe.Expire(ctx, key, sessionRetention)
		pipe.HSet(ctx, makeBehaviorMetricsKey(userID), lastSessionField, at.Unix())
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to record session: %w", err)
	}

	// Cleanup days that fell out of the long window
	days, err := s.client.HKeys(ctx, key).Result()
	if err != nil {
		logrus.Warnf("failed to list session days for user %s: %v", userID, err)
		return nil
	}

	cutoff := at.UTC().Add(-sessionRetention).Format(sessionDayLayout)
	var toDelete []string
	for _, d := range days {
		if d < cutoff {
			toDelete = append(toDelete, d)
		}
	}
	if len(toDelete) > 0 {
		if err := s.client.HDel(ctx, key, toDelete...).Err(); err != nil {
			logrus.Warnf("failed to prune %d session days for user %s: %v", len(toDelete), userID, err)
		}
	}

	return nil
}

// SetMetrics overwrites the given counters for the user.
func (s *RedisBehaviorStore) SetMetrics(ctx context.Context, userID string, metrics signal.Metrics) error {
	if len(metrics) == 0 {
		return nil
	}

	fields := make([]interface{}, 0, len(metrics)*2)
	for name, value := range metrics {
		fields = append(fields, name, value)
	}
	if err := s.client.HSet(ctx, makeBehaviorMetricsKey(userID), fields...).Err(); err != nil {
		return fmt.Errorf("failed to set behavior metrics: %w", err)
	}
	return nil
}

// GetUserMetrics implements MetricsSource.
func (s *RedisBehaviorStore) GetUserMetrics(ctx context.Context, userID string, asOf time.Time) (signal.Metrics, error) {
	var counters, sessions *redis.StringStringMapCmd
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		counters = pipe.HGetAll(ctx, makeBehaviorMetricsKey(userID))
		sessions = pipe.HGetAll(ctx, makeBehaviorSessionsKey(userID))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read behavior data: %w", err)
	}

	metrics := make(signal.Metrics)
	var lastSession string
	for name, raw := range counters.Val() {
		if name == lastSessionField {
			lastSession = raw
			continue
		}
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			logrus.Warnf("skipping non-numeric behavior metric %s=%q for user %s", name, raw, userID)
			continue
		}
		metrics[name] = value
	}

	if days := sessions.Val(); len(days) > 0 || lastSession != "" {
		applySessionWindows(metrics, days, lastSession, asOf)
	}

	return metrics, nil
}

// applySessionWindows derives the session metrics from per-day buckets and
// the latest session timestamp. Buckets after asOf are ignored.
func applySessionWindows(metrics signal.Metrics, days map[string]string, lastSession string, asOf time.Time) {
	today := asOf.UTC().Truncate(24 * time.Hour)

	var last7, last30 float64
	for field, raw := range days {
		day, err := time.Parse(sessionDayLayout, field)
		if err != nil {
			continue
		}
		count, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}

		age := int(today.Sub(day).Hours() / 24)
		if age < 0 {
			continue
		}
		if age < sessionWindowShort {
			last7 += count
		}
		if age < sessionWindowLong {
			last30 += count
		}
	}
	metrics[signal.SessionsLast7d] = last7
	metrics[signal.SessionsLast30d] = last30

	if unix, err := strconv.ParseInt(lastSession, 10, 64); err == nil {
		since := asOf.Sub(time.Unix(unix, 0)).Hours() / 24
		metrics[signal.DaysSinceLastSession] = math.Max(0, math.Floor(since))
	}
}
