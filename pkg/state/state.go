// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package state

import (
	"errors"
	"fmt"
)

// ErrInvalidState is returned when a stored or configured lifecycle state
// is not one of the declared states.
var ErrInvalidState = errors.New("invalid lifecycle state")

// State is a user's lifecycle state.
type State uint8

const (
	Unknown State = iota
	New
	Activated
	Engaged
	PowerUser
	AtRisk
	Dormant
	Returning
)

var stateNames = map[State]string{
	New:       "new",
	Activated: "activated",
	Engaged:   "engaged",
	PowerUser: "power_user",
	AtRisk:    "at_risk",
	Dormant:   "dormant",
	Returning: "returning",
}

// All returns every declared state in lifecycle order.
func All() []State {
	return []State{New, Activated, Engaged, PowerUser, AtRisk, Dormant, Returning}
}

// Parse converts a state name into a State.
func Parse(name string) (State, error) {
	for s, n := range stateNames {
		if n == name {
			return s, nil
		}
	}
	return Unknown, fmt.Errorf("%w: %q", ErrInvalidState, name)
}

// Valid reports whether s is a declared state.
func (s State) Valid() bool {
	_, ok := stateNames[s]
	return ok
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("unknown(%d)", uint8(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidState, uint8(s))
	}
	return []byte(stateNames[s]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Unknown names are rejected.
func (s *State) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Edge is a declared transition between two states.
type Edge struct {
	From State
	To   State
}

func (e Edge) String() string {
	return e.From.String() + "->" + e.To.String()
}

var declaredEdges = []Edge{
	{From: New, To: Activated},
	{From: Activated, To: Engaged},
	{From: Engaged, To: PowerUser},
	{From: Engaged, To: AtRisk},
	{From: AtRisk, To: Dormant},
	{From: Dormant, To: Returning},
	{From: Returning, To: Engaged},
}

// DeclaredEdges returns a copy of the transition graph.
func DeclaredEdges() []Edge {
	out := make([]Edge, len(declaredEdges))
	copy(out, declaredEdges)
	return out
}

// IsDeclaredEdge reports whether from->to is part of the transition graph.
func IsDeclaredEdge(from, to State) bool {
	for _, e := range declaredEdges {
		if e.From == from && e.To == to {
			return true
		}
	}
	return false
}
