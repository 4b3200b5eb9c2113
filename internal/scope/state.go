package scope

import (
	"errors"
	"sort"
	"sync"

	"github.com/jmylchreest/migui/internal/broker"
)

// ManagerField is the field that holds the device manager proxy.
const ManagerField = "manager"

var (
	// ErrAlreadyBound is returned when a write-once field is set twice.
	ErrAlreadyBound = errors.New("field already bound")
	// ErrNilValue is returned when binding a nil proxy.
	ErrNilValue = errors.New("nil value")
	// ErrStateClosed is returned for writes to a closed State.
	ErrStateClosed = errors.New("state is closed")
)

// ChangeEvent reports a field assignment.
type ChangeEvent struct {
	Field string
	Value any
}

// State is an observable container of named fields.
type State struct {
	mu          sync.RWMutex
	fields      map[string]any
	manager     broker.Proxy
	subscribers []chan ChangeEvent
	closed      bool
}

// NewState creates an empty State.
func NewState() *State {
	return &State{
		fields:      make(map[string]any),
		subscribers: make([]chan ChangeEvent, 0),
	}
}

// SetManager binds the device manager proxy. The field is write-once.
func (s *State) SetManager(p broker.Proxy) error {
	if p == nil {
		return ErrNilValue
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStateClosed
	}
	if s.manager != nil {
		return ErrAlreadyBound
	}

	s.manager = p
	s.notifyChange(ChangeEvent{Field: ManagerField, Value: p})
	return nil
}

// Manager returns the bound proxy, if any.
func (s *State) Manager() (broker.Proxy, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.manager, s.manager != nil
}

// Set assigns a free-form field. ManagerField is reserved for SetManager.
func (s *State) Set(field string, value any) error {
	if field == ManagerField {
		p, ok := value.(broker.Proxy)
		if !ok {
			return ErrNilValue
		}
		return s.SetManager(p)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStateClosed
	}

	s.fields[field] = value
	s.notifyChange(ChangeEvent{Field: field, Value: value})
	return nil
}

// Get returns a field value.
func (s *State) Get(field string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if field == ManagerField {
		return s.manager, s.manager != nil
	}
	v, ok := s.fields[field]
	return v, ok
}

// Fields returns the names of all set fields, sorted.
func (s *State) Fields() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.fields)+1)
	for name := range s.fields {
		names = append(names, name)
	}
	if s.manager != nil {
		names = append(names, ManagerField)
	}
	sort.Strings(names)
	return names
}

// Subscribe returns a channel receiving change events.
// Events are dropped for subscribers that are not keeping up.
func (s *State) Subscribe() <-chan ChangeEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan ChangeEvent, 10)
	if s.closed {
		close(ch)
		return ch
	}
	s.subscribers = append(s.subscribers, ch)
	return ch
}

// notifyChange sends an event to all subscribers. Caller must hold s.mu.
func (s *State) notifyChange(event ChangeEvent) {
	for _, ch := range s.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

// Close closes all subscriber channels. Later writes fail with ErrStateClosed.
func (s *State) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	for _, ch := range s.subscribers {
		close(ch)
	}
	s.subscribers = nil
}
