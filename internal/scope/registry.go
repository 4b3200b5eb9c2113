package scope

import (
	"errors"
	"fmt"
	"sync"
)

// ErrDuplicateElement is returned when binding an id that is already bound.
var ErrDuplicateElement = errors.New("element already bound")

// LookupError reports that no state is bound to an element id.
type LookupError struct {
	ElementID string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("no state bound to element %q", e.ElementID)
}

// Registry maps element ids to their root States.
type Registry struct {
	mu     sync.RWMutex
	states map[string]*State
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		states: make(map[string]*State),
	}
}

// Bind associates state with id.
func (r *Registry) Bind(id string, state *State) error {
	if state == nil {
		return ErrNilValue
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.states[id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateElement, id)
	}
	r.states[id] = state
	return nil
}

// Unbind removes the state bound to id and returns it.
func (r *Registry) Unbind(id string) (*State, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.states[id]
	delete(r.states, id)
	return state, ok
}

// StateForElement returns the state bound to id or a *LookupError.
func (r *Registry) StateForElement(id string) (*State, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.states[id]
	if !ok {
		return nil, &LookupError{ElementID: id}
	}
	return state, nil
}

// Single returns a Registry with one state bound to id.
func Single(id string, state *State) *Registry {
	r := NewRegistry()
	if state != nil {
		r.states[id] = state
	}
	return r
}
