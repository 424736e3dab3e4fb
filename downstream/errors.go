package downstream

import (
	"errors"
	"fmt"
)

var (
	// ErrServiceUnavailable means the remote could not answer: timeout, transport failure,
	// 5xx, or an open circuit.
	ErrServiceUnavailable = errors.New("downstream service unavailable")
	// ErrRemoteRejected wraps envelope failures without a typed counterpart.
	ErrRemoteRejected = errors.New("downstream service rejected the request")
	// ErrBuildingRequestFailed is returned when the outgoing request cannot be assembled.
	ErrBuildingRequestFailed = errors.New("building downstream request failed")
	// ErrMalformedResponse is returned, joined with ErrServiceUnavailable, for undecodable answers.
	ErrMalformedResponse = errors.New("malformed downstream response")
)

// RemoteError is a failure reported inside the remote envelope.
type RemoteError struct {
	Status  int
	Code    int
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote error: status %d, code %d: %s", e.Status, e.Code, e.Message)
}

func unavailable(cause error) error {
	return errors.Join(ErrServiceUnavailable, cause)
}
