package transport

import (
	"errors"
	"fmt"
)

// Kind classifies a failed chat exchange.
type Kind string

const (
	// KindNetworkUnavailable: the request failed before any response.
	KindNetworkUnavailable Kind = "network_unavailable"
	// KindBackendError: non-2xx status or an explicit success:false.
	KindBackendError Kind = "backend_error"
	// KindMalformedResponse: the payload did not match the contract.
	KindMalformedResponse Kind = "malformed_response"
)

// Error wraps a transport failure with its classification.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Classify extracts the kind from a transport error. Unclassified
// errors count as network failures, the conservative reading.
func Classify(err error) Kind {
	var terr *Error
	if errors.As(err, &terr) {
		return terr.Kind
	}
	return KindNetworkUnavailable
}
