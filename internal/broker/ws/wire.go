package ws

import (
	"encoding/json"
	"fmt"

	"github.com/jmylchreest/migui/internal/broker"
)

// Operations understood by the broker endpoint.
const (
	OpLocate = "locate"
	OpInvoke = "invoke"
)

// Remote error codes.
const (
	CodeNotFound      = 404
	CodeBadRequest    = 400
	CodeUnknownMethod = 501
	CodeInternal      = 500
)

// Request is one client frame.
type Request struct {
	ID       string          `json:"id"`
	Op       string          `json:"op"`
	Identity string          `json:"identity"`
	Method   string          `json:"method,omitempty"`
	Params   json.RawMessage `json:"params,omitempty"`
}

// Response is one broker frame.
type Response struct {
	ID     string          `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *WireError      `json:"error,omitempty"`
}

// WireError is the error member of a Response.
type WireError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// LocateResult is the result of a locate request.
type LocateResult struct {
	Identity string `json:"identity"`
	Type     string `json:"type"`
}

// RemoteError is an error reported by the broker.
type RemoteError struct {
	Op      string
	Code    int
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote %s failed (%d): %s", e.Op, e.Code, e.Message)
}

// Unwrap maps not-found codes onto broker.ErrObjectNotFound.
func (e *RemoteError) Unwrap() error {
	if e.Code == CodeNotFound {
		return broker.ErrObjectNotFound
	}
	return nil
}
