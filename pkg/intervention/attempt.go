package intervention

import (
	"time"
)

// AttemptRecord tracks the firing history of one intervention for one user.
type AttemptRecord struct {
	InterventionID string     `json:"interventionId"`
	FirstFiredAt   time.Time  `json:"firstFiredAt"`
	FiredAt        time.Time  `json:"firedAt"`
	DismissedAt    *time.Time `json:"dismissedAt,omitempty"`
	Interacted     bool       `json:"interacted"`
	FireCount      int        `json:"fireCount"`
}

// InCooldown reports whether the latest firing is still within cooldown.
func (a AttemptRecord) InCooldown(cooldown time.Duration, now time.Time) bool {
	if a.FiredAt.IsZero() {
		return false
	}
	return now.Before(a.FiredAt.Add(cooldown))
}

// Exhausted reports whether the intervention reached its lifetime cap.
func (a AttemptRecord) Exhausted(maxFires int) bool {
	return a.FireCount >= maxFires
}

// Fired returns the record updated for a firing at now.
func (a AttemptRecord) Fired(interventionID string, now time.Time) AttemptRecord {
	a.InterventionID = interventionID
	if a.FirstFiredAt.IsZero() {
		a.FirstFiredAt = now
	}
	a.FiredAt = now
	a.FireCount++
	a.DismissedAt = nil
	a.Interacted = false
	return a
}

// Dismissed returns the record with the dismissal recorded.
func (a AttemptRecord) Dismissed(now time.Time) AttemptRecord {
	a.DismissedAt = &now
	return a
}

// Attempts is the per-user set of attempt records keyed by intervention id.
type Attempts map[string]AttemptRecord

// Clone returns an independent copy.
func (a Attempts) Clone() Attempts {
	out := make(Attempts, len(a))
	for k, v := range a {
		if v.DismissedAt != nil {
			d := *v.DismissedAt
			v.DismissedAt = &d
		}
		out[k] = v
	}
	return out
}
