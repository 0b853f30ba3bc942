package domain

import "fmt"

type RunState string

const (
	StateIdle       RunState = "Idle"
	StateStorying   RunState = "Storying"
	StateImaging    RunState = "Imaging"
	StateNarrating  RunState = "Narrating"
	StateAssembling RunState = "Assembling"
	StateDone       RunState = "Done"
	StateFailed     RunState = "Failed"
)

// IsTerminal reports whether the state ends the run.
func IsTerminal(s RunState) bool {
	return s == StateDone || s == StateFailed
}

// Transition validates that from -> to is a legal forward-only step. Any
// state may fail; everything else has exactly one successor.
func Transition(from, to RunState) error {
	if !isAllowedTransition(from, to) {
		return fmt.Errorf("disallowed run state transition: %s -> %s", from, to)
	}
	return nil
}

func isAllowedTransition(from, to RunState) bool {
	if to == StateFailed {
		return !IsTerminal(from)
	}
	switch from {
	case StateIdle:
		return to == StateStorying
	case StateStorying:
		return to == StateImaging
	case StateImaging:
		return to == StateNarrating
	case StateNarrating:
		return to == StateAssembling
	case StateAssembling:
		return to == StateDone
	default:
		return false
	}
}
