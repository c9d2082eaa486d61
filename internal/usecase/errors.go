package usecase

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	ErrorMissingParameter     ErrorCode = "MISSING_PARAMETER"
	ErrorInvalidState         ErrorCode = "INVALID_STATE"
	ErrorTokenExchange        ErrorCode = "TOKEN_EXCHANGE"
	ErrorUnauthorizedResource ErrorCode = "UNAUTHORIZED_RESOURCE"
	ErrorTransientQuery       ErrorCode = "TRANSIENT_QUERY"
	ErrorStoreUnavailable     ErrorCode = "STORE_UNAVAILABLE"
	ErrorInvalidInput         ErrorCode = "INVALID_INPUT"
	ErrorInternal             ErrorCode = "INTERNAL_ERROR"
)

type Error struct {
	Code   ErrorCode
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("usecase: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("usecase: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}

// CodeOf returns the taxonomy code of err, or ErrorInternal when err did not
// originate in this package.
func CodeOf(err error) ErrorCode {
	var ucErr *Error
	if errors.As(err, &ucErr) {
		return ucErr.Code
	}
	return ErrorInternal
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

func upstreamStatusCode(err error) (int, bool) {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	return statusErr.HTTPStatusCode(), true
}
