// Package authzclient is a Go client for the SGNL access-evaluation HTTP
// API, shared by the sudo policy adapter and the PAM account adapter. It is
// grounded on original_source/src/c/lib/libsgnl.c and libsgnl.h.
package authzclient

import "fmt"

// Result mirrors sgnl_result_t (libsgnl.h). Client operations return a Go
// error; when the failure originated in this package it is an *Error whose
// Result field carries one of these as a stable status code.
type Result int

const (
	ResultOK Result = iota
	ResultAllowed
	ResultDenied
	ResultError
	ResultConfigError
	ResultNetworkError
	ResultAuthError
	ResultTimeoutError
	ResultInvalidRequest
	ResultMemoryError
)

func (r Result) String() string {
	switch r {
	case ResultOK:
		return "ok"
	case ResultAllowed:
		return "allowed"
	case ResultDenied:
		return "denied"
	case ResultError:
		return "error"
	case ResultConfigError:
		return "config_error"
	case ResultNetworkError:
		return "network_error"
	case ResultAuthError:
		return "auth_error"
	case ResultTimeoutError:
		return "timeout_error"
	case ResultInvalidRequest:
		return "invalid_request"
	case ResultMemoryError:
		return "memory_error"
	default:
		return fmt.Sprintf("result(%d)", int(r))
	}
}

// Retryable reports whether a failure of this kind is worth retrying with
// backoff. Only transport-level failures qualify — an authentication
// failure or a parsed decision is never retried (SPEC_FULL.md §4.4).
func (r Result) Retryable() bool {
	return r == ResultNetworkError || r == ResultTimeoutError
}

// Error wraps a Result with a human-readable message and, when the failure
// originated from the transport or an upstream HTTP response, the
// underlying cause. It implements the error interface so it composes with
// gravitational/trace.
type Error struct {
	Result  Result
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Result, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Result, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// newError builds an *Error, the package's single constructor so every
// call site stays consistent about which fields get set.
func newError(result Result, cause error, format string, args ...any) *Error {
	return &Error{Result: result, Message: fmt.Sprintf(format, args...), Cause: cause}
}
