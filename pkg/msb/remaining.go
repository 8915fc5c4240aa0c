package msb

// Remaining is the repeat counter of an MSB or survey target.
//
// A positive value is the number of repeats left and zero means exhausted.
// A negative value means removed; its magnitude is the count that unremove
// restores. RemovedHard is the legacy marker of a block removed outright.
type Remaining int

// RemovedHard is the legacy "removed, count unknown" value.
const RemovedHard Remaining = -999

// State is the coarse state of a Remaining counter.
type State string

const (
	StateActive    State = "ACTIVE"
	StateExhausted State = "EXHAUSTED"
	StateRemoved   State = "REMOVED"
)

// String returns the string representation of the state.
func (s State) String() string {
	return string(s)
}

// State classifies the counter.
func (r Remaining) State() State {
	switch {
	case r > 0:
		return StateActive
	case r == 0:
		return StateExhausted
	default:
		return StateRemoved
	}
}

// IsRemoved reports whether the counter is in the removed state.
func (r Remaining) IsRemoved() bool {
	return r < 0
}

// Observed returns the counter after one observation. An active counter
// decrements but never drops below zero. A removed counter stays removed but
// grows in magnitude so that a later restore accounts for the observation.
func (r Remaining) Observed() Remaining {
	switch {
	case r == RemovedHard:
		return r
	case r < 0:
		return r - 1
	case r == 0:
		return 0
	default:
		return r - 1
	}
}

// Unobserved returns the counter after an observation is withdrawn. A removed
// counter is restored to the count it held before the last observation.
func (r Remaining) Unobserved() Remaining {
	switch {
	case r == RemovedHard:
		return 1
	case r < 0:
		n := -r - 1
		if n < 1 {
			n = 1
		}
		return n
	default:
		return r + 1
	}
}

// Removed returns the counter after removal. Removing an exhausted counter
// records a single repeat so that unremove re-enables it for one more try.
// Removing an already removed counter changes nothing.
func (r Remaining) Removed() Remaining {
	switch {
	case r > 0:
		return -r
	case r == 0:
		return -1
	default:
		return r
	}
}

// Unremoved returns the counter restored from removal.
func (r Remaining) Unremoved() Remaining {
	switch {
	case r == RemovedHard:
		return 1
	case r < 0:
		return -r
	default:
		return r
	}
}
