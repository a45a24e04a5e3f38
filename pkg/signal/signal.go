package signal

import (
	"time"
)

// Signal names usable in transition rule conditions.
const (
	SessionsLast7d            = "sessions_last_7d"
	SessionsLast30d           = "sessions_last_30d"
	SessionsPerWeek           = "sessions_per_week"
	SessionFrequencyDecline   = "session_frequency_decline"
	WeeklyEngagementStreak    = "weekly_engagement_streak"
	DaysSinceLastSession      = "days_since_last_session"
	DaysSinceHabitLoopTrigger = "days_since_habit_loop_trigger"
	DismissedNudges           = "dismissed_nudges"
	ShownNudges               = "shown_nudges"
	NudgeDismissalRate        = "nudge_dismissal_rate"
	IncompleteFlows           = "incomplete_flows"
	InitiatedFlows            = "initiated_flows"
	ActionAbandonmentRate     = "action_abandonment_rate"
	CapabilityTierUnlocked    = "capability_tier_unlocked"
	FeatureUnlockCount        = "feature_unlock_count"
	SignalScore               = "signal_score"

	// ChurnRiskScore is derived by the scorer in the same cycle, not read from a source.
	ChurnRiskScore = "churn_risk_score"
)

// RawMetrics lists the metric names a MetricsSource is expected to supply.
var RawMetrics = []string{
	SessionsLast7d,
	SessionsLast30d,
	WeeklyEngagementStreak,
	DaysSinceLastSession,
	DaysSinceHabitLoopTrigger,
	DismissedNudges,
	ShownNudges,
	IncompleteFlows,
	InitiatedFlows,
	CapabilityTierUnlocked,
	FeatureUnlockCount,
	SignalScore,
}

// KnownSignals lists every name that may appear in a rule condition or a churn factor.
var KnownSignals = append(append([]string{}, RawMetrics...),
	SessionsPerWeek,
	SessionFrequencyDecline,
	NudgeDismissalRate,
	ActionAbandonmentRate,
	ChurnRiskScore,
)

// IsKnown reports whether name is a recognised signal.
func IsKnown(name string) bool {
	for _, s := range KnownSignals {
		if s == name {
			return true
		}
	}
	return false
}

// Snapshot is the per-cycle behavioral view of one user. It is never persisted.
type Snapshot struct {
	UserID string    `json:"userId"`
	AsOf   time.Time `json:"asOf"`

	SessionsLast7d          float64 `json:"sessionsLast7d"`
	SessionsLast30d         float64 `json:"sessionsLast30d"`
	SessionsPerWeek         float64 `json:"sessionsPerWeek"`
	SessionFrequencyDecline float64 `json:"sessionFrequencyDecline"`
	WeeklyEngagementStreak  float64 `json:"weeklyEngagementStreak"`

	DaysSinceLastSession      float64 `json:"daysSinceLastSession"`
	DaysSinceHabitLoopTrigger float64 `json:"daysSinceHabitLoopTrigger"`

	DismissedNudges    float64 `json:"dismissedNudges"`
	ShownNudges        float64 `json:"shownNudges"`
	NudgeDismissalRate float64 `json:"nudgeDismissalRate"`

	IncompleteFlows       float64 `json:"incompleteFlows"`
	InitiatedFlows        float64 `json:"initiatedFlows"`
	ActionAbandonmentRate float64 `json:"actionAbandonmentRate"`

	CapabilityTierUnlocked float64 `json:"capabilityTierUnlocked"`
	FeatureUnlockCount     float64 `json:"featureUnlockCount"`
	SignalScore            float64 `json:"signalScore"`
}

// Values exposes the snapshot keyed by signal name.
func (s *Snapshot) Values() map[string]float64 {
	return map[string]float64{
		SessionsLast7d:            s.SessionsLast7d,
		SessionsLast30d:           s.SessionsLast30d,
		SessionsPerWeek:           s.SessionsPerWeek,
		SessionFrequencyDecline:   s.SessionFrequencyDecline,
		WeeklyEngagementStreak:    s.WeeklyEngagementStreak,
		DaysSinceLastSession:      s.DaysSinceLastSession,
		DaysSinceHabitLoopTrigger: s.DaysSinceHabitLoopTrigger,
		DismissedNudges:           s.DismissedNudges,
		ShownNudges:               s.ShownNudges,
		NudgeDismissalRate:        s.NudgeDismissalRate,
		IncompleteFlows:           s.IncompleteFlows,
		InitiatedFlows:            s.InitiatedFlows,
		ActionAbandonmentRate:     s.ActionAbandonmentRate,
		CapabilityTierUnlocked:    s.CapabilityTierUnlocked,
		FeatureUnlockCount:        s.FeatureUnlockCount,
		SignalScore:               s.SignalScore,
	}
}
