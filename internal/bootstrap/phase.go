package bootstrap

import "fmt"

// Phase is the bootstrap lifecycle phase.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseResolving
	PhaseAttached
	PhaseFailed
)

// String returns the lowercase phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseResolving:
		return "resolving"
	case PhaseAttached:
		return "attached"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions are possible.
func (p Phase) Terminal() bool {
	return p == PhaseAttached || p == PhaseFailed
}

func isAllowedTransition(from, to Phase) bool {
	switch from {
	case PhaseIdle:
		return to == PhaseResolving
	case PhaseResolving:
		return to == PhaseAttached || to == PhaseFailed
	default:
		return false
	}
}

func transitionError(from, to Phase) error {
	return fmt.Errorf("disallowed transition %s -> %s", from, to)
}
