package table

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

// ErrorKind classifies a failed fetch.
type ErrorKind string

const (
	KindConfiguration ErrorKind = "configuration"
	KindTimeout       ErrorKind = "timeout"
	KindServer        ErrorKind = "server"
	KindNetwork       ErrorKind = "network"
	KindUnknown       ErrorKind = "unknown"
)

// Error is returned by Client.Fetch. Its message is meant to be shown
// to the user as-is.
type Error struct {
	Kind ErrorKind

	// Status and Body are set for KindServer.
	Status int
	Body   string

	// Timeout is the configured request timeout, used by KindTimeout.
	Timeout time.Duration

	Err error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindConfiguration:
		return "API Token is not configured. Set table.token in the config file or the EVENTFEED_API_TOKEN environment variable."
	case KindTimeout:
		return "Request timed out after " + strconv.FormatFloat(e.Timeout.Seconds(), 'f', -1, 64) + " seconds."
	case KindServer:
		return fmt.Sprintf("Server error: %d - %s", e.Status, e.Body)
	case KindNetwork:
		return "No response from server. Check your network connection."
	default:
		if e.Err == nil {
			return "Unexpected error"
		}
		return "Unexpected error: " + e.Err.Error()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of err, or "" if err is not an *Error.
func KindOf(err error) ErrorKind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return ""
}

// classifyTransport maps an error from sending the request or reading
// the response to a timeout, network or unknown failure.
func classifyTransport(err error, timeout time.Duration, sent bool) *Error {
	if isTimeout(err) {
		return &Error{Kind: KindTimeout, Timeout: timeout, Err: err}
	}
	if sent {
		return &Error{Kind: KindNetwork, Err: err}
	}
	return &Error{Kind: KindUnknown, Err: err}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
