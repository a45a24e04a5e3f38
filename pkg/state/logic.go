// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package state

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Initial returns the state assigned to a user on their first evaluation.
func Initial(now time.Time) UserLifecycleState {
	return UserLifecycleState{
		Current:   New,
		EnteredAt: now,
	}
}

// Validate returns ErrInvalidState if the current state is not declared.
func (s UserLifecycleState) Validate() error {
	if !s.Current.Valid() {
		return fmt.Errorf("%w: current state %s", ErrInvalidState, s.Current)
	}
	return nil
}

// TimeInState returns how long the user has been in the current state.
// A clock that moved backwards yields zero.
func (s UserLifecycleState) TimeInState(now time.Time) time.Duration {
	d := now.Sub(s.EnteredAt)
	if d < 0 {
		return 0
	}
	return d
}

// DaysInState returns whole days spent in the current state.
func (s UserLifecycleState) DaysInState(now time.Time) int {
	return int(s.TimeInState(now) / (24 * time.Hour))
}

// Transition moves the user along a declared edge and returns the audit record.
// The receiver is left untouched when the edge is not declared.
func (s *UserLifecycleState) Transition(to State, ruleID string, now time.Time) (TransitionRecord, error) {
	if err := s.Validate(); err != nil {
		return TransitionRecord{}, err
	}
	if !IsDeclaredEdge(s.Current, to) {
		return TransitionRecord{}, fmt.Errorf("%w: edge %s->%s is not declared", ErrInvalidState, s.Current, to)
	}

	rec := TransitionRecord{
		From:   s.Current,
		To:     to,
		RuleID: ruleID,
		At:     now,
	}

	s.Previous = s.Current
	s.Current = to
	s.EnteredAt = now

	logrus.Debugf("lifecycle transition %s->%s via rule %s at %v", rec.From, rec.To, ruleID, now)
	return rec, nil
}

// AppendHistory appends rec and drops the oldest entries beyond MaxHistory.
func AppendHistory(history []TransitionRecord, rec TransitionRecord) []TransitionRecord {
	history = append(history, rec)
	if len(history) > MaxHistory {
		history = history[len(history)-MaxHistory:]
	}
	return history
}
