package signal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrDataUnavailable is returned when behavioral metrics cannot be read.
// Callers treat it as retryable.
var ErrDataUnavailable = errors.New("behavioral data unavailable")

// weeksPer30Days converts a 30 day count into a weekly baseline.
const weeksPer30Days = 30.0 / 7.0

// Metrics holds raw behavioral metrics keyed by metric name.
type Metrics map[string]float64

// MetricsSource supplies raw behavioral metrics for a user.
type MetricsSource interface {
	GetUserMetrics(ctx context.Context, userID string, asOf time.Time) (Metrics, error)
}

// Aggregator turns raw metrics into a Snapshot.
type Aggregator struct {
	source MetricsSource
}

// NewAggregator creates a new signal aggregator.
func NewAggregator(source MetricsSource) *Aggregator {
	return &Aggregator{
		source: source,
	}
}

// Aggregate reads metrics for userID and builds a complete snapshot.
// Missing metrics are zero. Any read failure, including a cancelled or expired
// context, is reported as ErrDataUnavailable and no snapshot is returned.
func (a *Aggregator) Aggregate(ctx context.Context, userID string, asOf time.Time) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: user %s: %w", ErrDataUnavailable, userID, err)
	}

	metrics, err := a.source.GetUserMetrics(ctx, userID, asOf)
	if err != nil {
		if errors.Is(err, ErrDataUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: user %s: %w", ErrDataUnavailable, userID, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: user %s: %w", ErrDataUnavailable, userID, err)
	}

	snap := Build(userID, asOf, metrics)
	logrus.Debugf("aggregated signals for user %s: %+v", userID, snap)
	return snap, nil
}

// Build derives a snapshot from raw metrics.
func Build(userID string, asOf time.Time, m Metrics) *Snapshot {
	get := func(name string) float64 {
		v := m[name]
		if v < 0 {
			return 0
		}
		return v
	}

	s := &Snapshot{
		UserID:                    userID,
		AsOf:                      asOf,
		SessionsLast7d:            get(SessionsLast7d),
		SessionsLast30d:           get(SessionsLast30d),
		WeeklyEngagementStreak:    get(WeeklyEngagementStreak),
		DaysSinceLastSession:      get(DaysSinceLastSession),
		DaysSinceHabitLoopTrigger: get(DaysSinceHabitLoopTrigger),
		DismissedNudges:           get(DismissedNudges),
		ShownNudges:               get(ShownNudges),
		IncompleteFlows:           get(IncompleteFlows),
		InitiatedFlows:            get(InitiatedFlows),
		CapabilityTierUnlocked:    get(CapabilityTierUnlocked),
		FeatureUnlockCount:        get(FeatureUnlockCount),
		SignalScore:               get(SignalScore),
	}

	s.SessionsPerWeek = s.SessionsLast7d
	s.NudgeDismissalRate = ratio(s.DismissedNudges, s.ShownNudges)
	s.ActionAbandonmentRate = ratio(s.IncompleteFlows, s.InitiatedFlows)
	s.SessionFrequencyDecline = frequencyChange(s.SessionsLast7d, s.SessionsLast30d)

	return s
}

// ratio returns num/den capped at 1, or 0 when den is 0.
func ratio(num, den float64) float64 {
	if den <= 0 {
		return 0
	}
	r := num / den
	if r > 1 {
		return 1
	}
	return r
}

// frequencyChange is the relative change of the last week's sessions against
// the 30 day weekly average. Negative values are a decline.
func frequencyChange(last7d, last30d float64) float64 {
	baseline := last30d / weeksPer30Days
	if baseline <= 0 {
		return 0
	}
	return (last7d - baseline) / baseline
}
