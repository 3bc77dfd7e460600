package autherrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies one outcome of the token/session lifecycle. The set is
// closed: handlers translate a Code to an HTTP response exactly once, at the
// response boundary, and nothing else inspects error text.
type Code string

const (
	CodeAuthError         Code = "AuthError"
	CodeEmailVerification Code = "EmailVerification"
	CodeAccountSuspended  Code = "AccountSuspended"
	CodeAccountInactive   Code = "AccountInactive"
	CodeInvalidType       Code = "InvalidType"
	CodeTokenDenied       Code = "TokenDenied"
	CodeInvalidToken      Code = "InvalidToken"
	CodeTokenExpired      Code = "TokenExpired"
	CodeRateLimited       Code = "RateLimited"
	CodeForbidden         Code = "Forbidden"
	CodeUnknownError      Code = "UnknownError"
)

var statusByCode = map[Code]int{
	CodeAuthError:         http.StatusUnauthorized,
	CodeEmailVerification: http.StatusForbidden,
	CodeAccountSuspended:  http.StatusForbidden,
	CodeAccountInactive:   http.StatusForbidden,
	CodeInvalidType:       http.StatusBadRequest,
	CodeTokenDenied:       http.StatusUnauthorized,
	CodeInvalidToken:      http.StatusUnauthorized,
	CodeTokenExpired:      http.StatusUnauthorized,
	CodeRateLimited:       http.StatusTooManyRequests,
	CodeForbidden:         http.StatusForbidden,
	CodeUnknownError:      http.StatusInternalServerError,
}

var messageByCode = map[Code]string{
	CodeAuthError:         "invalid email or password",
	CodeEmailVerification: "email address not verified",
	CodeAccountSuspended:  "account suspended",
	CodeAccountInactive:   "account inactive",
	CodeInvalidType:       "invalid request type",
	CodeTokenDenied:       "token denied",
	CodeInvalidToken:      "invalid token",
	CodeTokenExpired:      "token expired",
	CodeRateLimited:       "too many requests",
	CodeForbidden:         "forbidden",
	CodeUnknownError:      "internal error",
}

// Error carries one taxonomy outcome together with its HTTP status.
// The Message is a stable machine-friendly default; localization of
// human-readable text is a response-boundary concern and lives outside
// this package.
type Error struct {
	Code    Code
	Status  int
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Is lets errors.Is match two taxonomy errors by Code.
func (e *Error) Is(target error) bool {
	var ae *Error
	if !errors.As(target, &ae) {
		return false
	}
	return e.Code == ae.Code
}

// New returns the canonical error for a code.
func New(code Code) *Error {
	return &Error{
		Code:    code,
		Status:  statusOf(code),
		Message: messageByCode[code],
	}
}

// Wrap attaches an underlying cause to a taxonomy code. The cause is kept
// for logging and errors.Is/As chains; it never reaches the client.
func Wrap(code Code, cause error) *Error {
	e := New(code)
	e.cause = cause
	return e
}

// CodeOf extracts the taxonomy code from an error chain. Anything outside
// the taxonomy collapses to UnknownError, the true last resort.
func CodeOf(err error) Code {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeUnknownError
}

// StatusOf returns the HTTP status for an error chain.
func StatusOf(err error) int {
	return statusOf(CodeOf(err))
}

func statusOf(code Code) int {
	if s, ok := statusByCode[code]; ok {
		return s
	}
	return http.StatusInternalServerError
}
