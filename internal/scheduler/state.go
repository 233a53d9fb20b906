package scheduler

import "fmt"

// State is the scheduler's position in its daily cycle.
type State int

const (
	Idle State = iota
	ClaimedWaitingOffTime
	ArmedWaitingTimer
	DormantToday
)

var stateNames = []string{"idle", "claimed-waiting-offtime", "armed-waiting-timer", "dormant-today"}

func (s State) String() string {
	if int(s) < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name.
func (s *State) UnmarshalText(b []byte) error {
	for i, name := range stateNames {
		if name == string(b) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown scheduler state %q", b)
}
