package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
)

// Kind tags a failure for retry classification. External collaborators
// wrap their errors with Tag so the caller's Policy can decide whether
// the failure is worth retrying.
type Kind uint8

const (
	// KindUnknown is the zero value for errors nobody classified.
	KindUnknown Kind = iota

	// Transient failure kinds.
	KindConnection
	KindTimeout
	KindUnavailable
	KindRateLimited

	// Permanent failure kinds.
	KindInvalidArgument
	KindUnauthenticated
)

var kindNames = map[Kind]string{
	KindUnknown:         "unknown",
	KindConnection:      "connection",
	KindTimeout:         "timeout",
	KindUnavailable:     "unavailable",
	KindRateLimited:     "rate_limited",
	KindInvalidArgument: "invalid_argument",
	KindUnauthenticated: "unauthenticated",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Error attaches a Kind to an underlying error.
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

// Tag wraps err with the given kind. Tagging a nil error returns nil.
func Tag(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// KindOf reports the classification kind of err. An explicit Tag wins;
// otherwise common transport failures are probed directly so untagged
// network errors still classify as transient. Everything else is
// KindUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged.Kind
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) {
		return KindConnection
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return KindConnection
	}

	return KindUnknown
}

// Class is the retry decision for one failure.
type Class uint8

const (
	// ClassNonRetryable suppresses further attempts. Unclassified
	// failures land here so unknown errors are never retried forever.
	ClassNonRetryable Class = iota

	// ClassRetryable allows another attempt after a backoff delay.
	ClassRetryable
)

// Policy lists the failure kinds an operation retries and the kinds it
// fails fast on. The non-retryable set is checked first and wins when a
// kind appears in both.
type Policy struct {
	Retryable    []Kind
	NonRetryable []Kind
}

// APIPolicy classifies failures of remote API calls: transport-level
// trouble is retried, credential and argument problems are not.
func APIPolicy() Policy {
	return Policy{
		Retryable:    []Kind{KindConnection, KindTimeout, KindUnavailable, KindRateLimited},
		NonRetryable: []Kind{KindInvalidArgument, KindUnauthenticated},
	}
}

// Classify decides whether err should be retried under this policy.
func (p Policy) Classify(err error) Class {
	kind := KindOf(err)
	for _, k := range p.NonRetryable {
		if kind == k {
			return ClassNonRetryable
		}
	}
	for _, k := range p.Retryable {
		if kind == k {
			return ClassRetryable
		}
	}
	return ClassNonRetryable
}
