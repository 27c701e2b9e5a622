// File: api/errors.go
// Package api
// License: Apache-2.0
//
// Error taxonomy shared across the runtime. Each class maps to a documented
// recovery action: protocol errors close the offending connection, handler
// errors are contained by the dispatch boundary, resource errors shed load,
// and fatal errors surface to the caller of Run.

package api

import "fmt"

// Sentinel errors used across the runtime.
var (
	ErrServerClosed     = fmt.Errorf("server is closed")
	ErrClientNotFound   = fmt.Errorf("client not found")
	ErrClientNotWS      = fmt.Errorf("client is not a websocket connection")
	ErrHandshakeDenied  = fmt.Errorf("handshake denied")
	ErrRateLimited      = fmt.Errorf("rate limit exceeded")
	ErrWriteOverflow    = fmt.Errorf("outbound buffer high-water mark exceeded")
	ErrInvalidArgument  = fmt.Errorf("invalid argument")
	ErrNotSupported     = fmt.Errorf("operation not supported")
	ErrAlreadyRunning   = fmt.Errorf("server already running")
	ErrQueueUnavailable = fmt.Errorf("broadcast queue unavailable")
)

// ErrorClass buckets an error per the runtime taxonomy.
type ErrorClass int

const (
	ClassProtocol ErrorClass = iota
	ClassHandler
	ClassValidation
	ClassRateLimit
	ClassResource
	ClassFatal
)

func (c ErrorClass) String() string {
	switch c {
	case ClassProtocol:
		return "protocol"
	case ClassHandler:
		return "handler"
	case ClassValidation:
		return "validation"
	case ClassRateLimit:
		return "ratelimit"
	case ClassResource:
		return "resource"
	default:
		return "fatal"
	}
}

// Error is a structured runtime error carrying its class and a context bag.
// The context bag always includes client_id and phase when raised inside the
// per-client dispatch boundary.
type Error struct {
	Class   ErrorClass
	Message string
	Context map[string]any
	cause   error
}

// NewError creates a structured error of the given class.
func NewError(class ErrorClass, message string) *Error {
	return &Error{
		Class:   class,
		Message: message,
		Context: make(map[string]any),
	}
}

// Errorf creates a structured error with a formatted message.
func Errorf(class ErrorClass, format string, args ...any) *Error {
	return NewError(class, fmt.Sprintf(format, args...))
}

// WrapError attaches a class and context to an underlying error.
func WrapError(class ErrorClass, cause error, message string) *Error {
	return &Error{
		Class:   class,
		Message: message,
		Context: make(map[string]any),
		cause:   cause,
	}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	if len(e.Context) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (context: %+v)", e.Message, e.Context)
}

// Unwrap exposes the cause for errors.Is/As chains.
func (e *Error) Unwrap() error { return e.cause }

// WithContext adds a key to the error's context bag and returns the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// WithClient records the standard client_id/phase pair.
func (e *Error) WithClient(id ClientID, phase Phase) *Error {
	return e.WithContext("client_id", int(id)).WithContext("phase", string(phase))
}
