package source

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// FailureKind classifies an adapter failure. All kinds are recoverable:
// they trigger the fallback chain and never abort a collection cycle.
type FailureKind string

const (
	FailureNetwork     FailureKind = "NETWORK"
	FailureRateLimit   FailureKind = "RATE_LIMIT"
	FailureBadResponse FailureKind = "BAD_RESPONSE"
)

// Error is a typed adapter failure.
type Error struct {
	Source string
	Kind   FailureKind
	Err    error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Source, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Source, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err as an adapter failure of the given kind.
func NewError(source string, kind FailureKind, err error) *Error {
	return &Error{Source: source, Kind: kind, Err: err}
}

// KindOf returns the failure kind of err. Timeouts and cancellations are
// treated as network failures; anything unrecognized defaults to a bad
// response since the adapter did reach the vendor.
func KindOf(err error) FailureKind {
	var srcErr *Error
	if errors.As(err, &srcErr) {
		return srcErr.Kind
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return FailureNetwork
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return FailureNetwork
	}

	return FailureBadResponse
}
