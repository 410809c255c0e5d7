package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// FailureKind classifies why a backend call did not produce a usable result.
type FailureKind int

const (
	KindUnknown FailureKind = iota
	KindNetwork
	KindTimeout
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindClient
	KindServer
	KindMalformed
)

func (k FailureKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindClient:
		return "client_error"
	case KindServer:
		return "server_error"
	case KindMalformed:
		return "malformed_response"
	default:
		return "unknown"
	}
}

// ErrNoSession is returned for authenticated calls made without an access token.
// No request is sent in that case.
var ErrNoSession = errors.New("no access token available")

// Failure describes a failed backend call.
type Failure struct {
	Kind    FailureKind
	Status  int
	Method  string
	Path    string
	Message string // machine-provided detail from the response body, if any
	Err     error
}

func (f *Failure) Error() string {
	if f == nil {
		return "<nil>"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "api %s %s", f.Method, f.Path)
	if f.Status > 0 {
		fmt.Fprintf(&b, " returned status %d", f.Status)
	} else {
		fmt.Fprintf(&b, " failed (%s)", f.Kind)
	}
	if f.Message != "" {
		fmt.Fprintf(&b, ": %s", f.Message)
	} else if f.Err != nil {
		fmt.Fprintf(&b, ": %v", f.Err)
	}
	return b.String()
}

func (f *Failure) Unwrap() error { return f.Err }

// KindOf extracts the failure kind from err. Errors that are not Failures
// report KindUnknown.
func KindOf(err error) FailureKind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return KindUnknown
}

// IsKind reports whether err is a Failure of the given kind.
func IsKind(err error, kind FailureKind) bool {
	return err != nil && KindOf(err) == kind
}

// Retryable reports whether repeating the same call may succeed.
func Retryable(err error) bool {
	if err == nil || errors.Is(err, ErrNoSession) {
		return false
	}
	switch KindOf(err) {
	case KindNetwork, KindTimeout, KindServer:
		return true
	case KindUnknown:
		return true
	default:
		return false
	}
}

// UserMessage renders err as text suitable for an inline error line.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrNoSession) {
		return "Please log in to access this feature."
	}
	var f *Failure
	if !errors.As(err, &f) {
		return "Something went wrong. Please try again."
	}
	switch f.Kind {
	case KindNetwork:
		return "Unable to reach the server. Check your connection and try again."
	case KindTimeout:
		return "The server took too long to respond. Check your connection and try again."
	case KindUnauthorized:
		return "Your session has expired. Please log in again."
	case KindForbidden:
		return "You do not have permission to do that."
	case KindNotFound:
		return "Nothing was found."
	case KindClient:
		if f.Message != "" {
			return f.Message
		}
		return "The request was rejected by the server."
	case KindServer:
		return "The server encountered an error. Please try again later."
	case KindMalformed:
		return "The server sent an unexpected response."
	default:
		return "Something went wrong. Please try again."
	}
}

func kindForStatus(status int) FailureKind {
	switch {
	case status == http.StatusUnauthorized:
		return KindUnauthorized
	case status == http.StatusForbidden:
		return KindForbidden
	case status == http.StatusNotFound:
		return KindNotFound
	case status >= 500:
		return KindServer
	case status >= 400:
		return KindClient
	default:
		return KindUnknown
	}
}

func kindForTransport(err error) FailureKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	return KindNetwork
}
