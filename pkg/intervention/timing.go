package intervention

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/AccelByte/extend-lifecycle-engine/pkg/signal"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/state"
)

// TimingKind identifies when a playbook entry becomes eligible.
type TimingKind int

const (
	// TimingImmediate is eligible as soon as the user is in the owning state.
	TimingImmediate TimingKind = iota
	// TimingDayOfState is eligible once the user spent N days in a state.
	TimingDayOfState
	// TimingLoginAfterDormancy is eligible on the first session after a dormant period.
	TimingLoginAfterDormancy
)

var dayOfStatePattern = regexp.MustCompile(`^day_(\d+)_of_([a-z_]+)$`)

// TimingRule is a parsed timing expression.
type TimingRule struct {
	Kind  TimingKind
	Day   int
	State state.State
	raw   string
}

// ParseTimingRule parses "immediate", "day_<N>_of_<state>" or "on_login_after_dormancy".
func ParseTimingRule(raw string) (TimingRule, error) {
	switch raw {
	case "", "immediate":
		return TimingRule{Kind: TimingImmediate, raw: "immediate"}, nil
	case "on_login_after_dormancy":
		return TimingRule{Kind: TimingLoginAfterDormancy, raw: raw}, nil
	}

	m := dayOfStatePattern.FindStringSubmatch(raw)
	if m == nil {
		return TimingRule{}, fmt.Errorf("unknown timing rule %q", raw)
	}

	day, err := strconv.Atoi(m[1])
	if err != nil {
		return TimingRule{}, fmt.Errorf("timing rule %q: %w", raw, err)
	}
	s, err := state.Parse(m[2])
	if err != nil {
		return TimingRule{}, fmt.Errorf("timing rule %q: %w", raw, err)
	}

	return TimingRule{Kind: TimingDayOfState, Day: day, State: s, raw: raw}, nil
}

func (t TimingRule) String() string {
	return t.raw
}

// Satisfied reports whether the timing allows firing for the given input.
func (t TimingRule) Satisfied(in SelectionInput) bool {
	switch t.Kind {
	case TimingImmediate:
		return true
	case TimingDayOfState:
		return in.Lifecycle.Current == t.State && in.Lifecycle.DaysInState(in.Now) >= t.Day
	case TimingLoginAfterDormancy:
		// The latest session must fall on or after the day the state was entered.
		return in.Lifecycle.Previous == state.Dormant &&
			in.Values[signal.SessionsLast7d] >= 1 &&
			in.Values[signal.DaysSinceLastSession] <= float64(in.Lifecycle.DaysInState(in.Now))
	}
	return false
}
