package channel

import (
	"errors"
	"fmt"
)

// FailureKind classifies a delivery failure for the dispatcher.
type FailureKind string

const (
	// FailureTransient: the send may succeed if retried (timeouts,
	// connection resets, provider 5xx).
	FailureTransient FailureKind = "transient"
	// FailurePermanent: retrying is pointless (bad address, rejected
	// payload, missing recipient data).
	FailurePermanent FailureKind = "permanent"
	// FailureUnavailable: the transport is not configured or not enabled
	// in this deployment.
	FailureUnavailable FailureKind = "unavailable"
	// FailureEndpointGone: the delivery endpoint no longer exists and its
	// registration should be invalidated.
	FailureEndpointGone FailureKind = "endpoint_gone"
)

// SendError wraps a transport failure together with its classification.
type SendError struct {
	Kind FailureKind
	// Endpoint identifies the dead endpoint for FailureEndpointGone.
	Endpoint string
	Err      error
}

func (e *SendError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("send failed (%s)", e.Kind)
	}
	return fmt.Sprintf("send failed (%s): %v", e.Kind, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

// Transient wraps err as a retryable failure.
func Transient(err error) error {
	return &SendError{Kind: FailureTransient, Err: err}
}

// Permanent wraps err as a non-retryable failure.
func Permanent(err error) error {
	return &SendError{Kind: FailurePermanent, Err: err}
}

// Unavailable reports a transport that is not configured.
func Unavailable(channel string) error {
	return &SendError{Kind: FailureUnavailable, Err: fmt.Errorf("channel %s is not configured", channel)}
}

// EndpointGone reports a dead endpoint that should be invalidated.
func EndpointGone(endpoint string, err error) error {
	return &SendError{Kind: FailureEndpointGone, Endpoint: endpoint, Err: err}
}

// KindOf extracts the failure classification from err. Unclassified errors
// are treated as transient so a flaky provider gets one more chance.
func KindOf(err error) FailureKind {
	var se *SendError
	if errors.As(err, &se) {
		return se.Kind
	}
	return FailureTransient
}
