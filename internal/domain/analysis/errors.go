package analysis

import (
	"errors"
	"fmt"
)

// ErrInvalidClassification means the remote service answered without one of the known tiers.
var ErrInvalidClassification = errors.New("invalid classification")

// ErrorKind groups failures by cause.
type ErrorKind string

const (
	KindRateLimited        ErrorKind = "rate_limited"
	KindServiceUnavailable ErrorKind = "service_unavailable"
	KindServiceError       ErrorKind = "service_error"
	KindRequestFailed      ErrorKind = "request_failed"
	KindTransportFailure   ErrorKind = "transport_failure"
)

// User-visible messages.
const (
	MsgRateLimited        = "Too many requests. Please wait a moment and try again."
	MsgServiceUnavailable = "Service temporarily unavailable. Please try again later."
	MsgRequestFailed      = "Analysis failed"
	MsgTransportFailure   = "Failed to analyze message"
)

// Error is the typed failure stored in State. Message is what the user sees.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Status  int       `json:"status,omitempty"`
	Err     error     `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrRateLimited) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrRateLimited        = &Error{Kind: KindRateLimited, Message: MsgRateLimited}
	ErrServiceUnavailable = &Error{Kind: KindServiceUnavailable, Message: MsgServiceUnavailable}
	ErrServiceError       = &Error{Kind: KindServiceError}
	ErrRequestFailed      = &Error{Kind: KindRequestFailed, Message: MsgRequestFailed}
	ErrTransportFailure   = &Error{Kind: KindTransportFailure, Message: MsgTransportFailure}
)

func RateLimited() *Error {
	return &Error{Kind: KindRateLimited, Message: MsgRateLimited, Status: 429}
}

func ServiceUnavailable() *Error {
	return &Error{Kind: KindServiceUnavailable, Message: MsgServiceUnavailable, Status: 402}
}

// ServiceError carries the text the server put in its "error" field.
func ServiceError(status int, text string) *Error {
	return &Error{Kind: KindServiceError, Message: text, Status: status}
}

func RequestFailed(status int) *Error {
	return &Error{Kind: KindRequestFailed, Message: MsgRequestFailed, Status: status}
}

func TransportFailure(cause error) *Error {
	return &Error{Kind: KindTransportFailure, Message: MsgTransportFailure, Err: cause}
}

// AsError coerces any error into the taxonomy. Unknown errors count as transport failures.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return TransportFailure(err)
}
