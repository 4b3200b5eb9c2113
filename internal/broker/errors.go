package broker

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedReference is returned when a reference string cannot be parsed.
	ErrMalformedReference = errors.New("malformed object reference")
	// ErrUnknownTransport is returned when no resolver is registered for a transport.
	ErrUnknownTransport = errors.New("unknown transport")
	// ErrObjectNotFound is returned when the remote side does not know the identity.
	ErrObjectNotFound = errors.New("object not found")
	// ErrClosed is returned by operations on a closed connection.
	ErrClosed = errors.New("connection closed")
)

// ResolutionError reports a failed StringToProxy call.
type ResolutionError struct {
	Name string
	Err  error
}

func (e *ResolutionError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("resolve %q: %v", e.Name, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }
