package model

import "fmt"

// BehaviorState is the ordinal digital-engagement state of a customer in one
// month. Order matters: Low < Medium < High, and a transition toward Low is
// a downgrade.
type BehaviorState int

// Behavioral states in ascending engagement order.
const (
	StateLow BehaviorState = iota
	StateMedium
	StateHigh
)

// NumStates is the size of the behavioral state space.
const NumStates = 3

// BehaviorStates lists all states in ascending order.
func BehaviorStates() []BehaviorState {
	return []BehaviorState{StateLow, StateMedium, StateHigh}
}

func (s BehaviorState) String() string {
	switch s {
	case StateLow:
		return "Low"
	case StateMedium:
		return "Medium"
	case StateHigh:
		return "High"
	default:
		return fmt.Sprintf("BehaviorState(%d)", int(s))
	}
}

// ParseBehaviorState converts the artifact representation back to a state.
func ParseBehaviorState(s string) (BehaviorState, error) {
	switch s {
	case "Low":
		return StateLow, nil
	case "Medium":
		return StateMedium, nil
	case "High":
		return StateHigh, nil
	default:
		return 0, fmt.Errorf("unknown behavior state %q", s)
	}
}

// CustomerState is one observed customer-month in the behavioral chain.
type CustomerState struct {
	CustomerID int
	Month      int
	State      BehaviorState
}

// StateSummary condenses a customer's chain into the state of the last
// observed month plus the one-step probability of downgrading from it.
type StateSummary struct {
	CustomerID    int
	State         BehaviorState
	DowngradeRisk float64
}
