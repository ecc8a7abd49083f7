package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// Error represents a structured error with code and context
type Error struct {
	Code    Code
	Domain  string
	Message string
	Cause   error
}

// New creates a new error with the given code, domain, message, and optional cause
func New(code Code, domain string, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Domain:  domain,
		Message: message,
		Cause:   cause,
	}
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Domain, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Domain, e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target error
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// CodeOf returns the code of the outermost *Error in err's chain, or
// CodeUnknown when there is none.
func CodeOf(err error) Code {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// IsCode reports whether any *Error in err's tree carries code.
func IsCode(err error, code Code) bool {
	return stderrors.Is(err, &Error{Code: code})
}

// Delayed is implemented by errors that carry a server-requested wait
// before the next attempt, such as a rate limit.
type Delayed interface {
	RetryDelay() time.Duration
}

// RetryDelay returns the wait requested by the first Delayed error in err's
// tree, or zero.
func RetryDelay(err error) time.Duration {
	var d Delayed
	if stderrors.As(err, &d) {
		return d.RetryDelay()
	}
	return 0
}
