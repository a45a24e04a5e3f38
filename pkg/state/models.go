// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package state

import (
	"time"
)

// UserLifecycleState is the persisted lifecycle position of a user.
type UserLifecycleState struct {
	Current   State     `json:"currentState"`
	EnteredAt time.Time `json:"stateEnteredAt"`
	Previous  State     `json:"previousState,omitempty"`
}

// TransitionRecord is an audit entry for an applied transition.
type TransitionRecord struct {
	From   State     `json:"from"`
	To     State     `json:"to"`
	RuleID string    `json:"ruleId"`
	At     time.Time `json:"at"`
}

// MaxHistory bounds the number of transition records kept per user.
const MaxHistory = 50
