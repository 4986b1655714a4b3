// ABOUTME: Typed failures returned by the SanteCall lookup client
// ABOUTME: Classifies transport, timeout, status and payload errors without leaking the URL

package santecall

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
)

// Kind classifies a lookup failure.
type Kind int

const (
	KindNetwork Kind = iota + 1
	KindTimeout
	KindStatus
	KindPayload
)

// String returns the metric/log label for the kind.
func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	case KindStatus:
		return "status"
	case KindPayload:
		return "payload"
	default:
		return "unknown"
	}
}

// LookupError is returned by Lookup for every failure.
type LookupError struct {
	Kind Kind
	// Status is the HTTP status code for KindStatus, zero otherwise.
	Status int
	Err    error
}

func (e *LookupError) Error() string {
	switch e.Kind {
	case KindTimeout:
		return "santecall lookup: request timed out"
	case KindStatus:
		return fmt.Sprintf("santecall lookup: unexpected status %d", e.Status)
	case KindPayload:
		return fmt.Sprintf("santecall lookup: invalid response body: %v", e.Err)
	default:
		return fmt.Sprintf("santecall lookup: %v", e.Err)
	}
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

// classifyTransportError turns an error from http.Client.Do or a body read
// into a LookupError. The *url.Error wrapper is dropped because its message
// embeds the full request URL, token included.
func classifyTransportError(err error) *LookupError {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &LookupError{Kind: KindTimeout, Err: err}
	}
	return &LookupError{Kind: KindNetwork, Err: err}
}
