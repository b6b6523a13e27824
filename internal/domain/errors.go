package domain

import (
	"errors"
	"fmt"
)

var ErrAdapterNotFound = errors.New("no adapter registered for provider")

// TransportError wraps a connection-level failure (DNS, dial, timeout)
// talking to a vendor.
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport error: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError is a non-success vendor response, carrying the status
// code and the raw error body.
type ProtocolError struct {
	Provider string
	Status   int
	Body     string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: status=%d body=%s", e.Provider, e.Status, e.Body)
}

// ParseError means a success-path response was missing an expected field.
type ParseError struct {
	Provider string
	Field    string
	Err      error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: parse response: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s: response missing %s", e.Provider, e.Field)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ExhaustedError is returned by the gateway when every candidate in the
// fallback chain has been tried and failed. It carries the last
// underlying adapter error.
type ExhaustedError struct {
	LastErr error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all AI providers failed, last error: %v", e.LastErr)
}

func (e *ExhaustedError) Unwrap() error { return e.LastErr }

// IsCandidateFailure reports whether err is an adapter-level failure
// that should advance the fallback loop to the next candidate. The
// typed adapter errors qualify even when they wrap a context sentinel:
// a vendor hanging past the shared client timeout surfaces as a
// TransportError wrapping context.DeadlineExceeded and must advance
// the chain. Caller-initiated aborts are detected from the call's own
// context by the gateway, never from the error chain.
func IsCandidateFailure(err error) bool {
	var (
		te *TransportError
		pe *ProtocolError
		se *ParseError
	)
	return errors.As(err, &te) || errors.As(err, &pe) || errors.As(err, &se)
}
