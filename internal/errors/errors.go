// Package errors holds the coded error type that services return and the
// HTTP layer turns into status codes.
//
//	if post.AuthorID != id.UserID && !id.IsAdmin {
//	    return errors.Forbidden("cannot edit another author's post")
//	}
//
// Matching goes by code, so any *Error compares equal to the sentinel
// for its code:
//
//	if errors.Is(err, errors.ErrPolicyRejected) { ... }
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard library helpers, so callers need one import.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
	New    = errors.New
)

// Code is the machine-readable part of an error, sent to clients as "code".
type Code string

const (
	CodeNotFound       Code = "NOT_FOUND"
	CodeAlreadyExists  Code = "ALREADY_EXISTS"
	CodeUnauthorized   Code = "UNAUTHORIZED"
	CodeForbidden      Code = "FORBIDDEN"
	CodeValidation     Code = "VALIDATION"
	CodeConflict       Code = "CONFLICT"
	CodePolicyRejected Code = "POLICY_REJECTED"
	CodeRateLimited    Code = "RATE_LIMITED"
	CodeInternal       Code = "INTERNAL"
)

var statusByCode = map[Code]int{
	CodeNotFound:       http.StatusNotFound,
	CodeAlreadyExists:  http.StatusConflict,
	CodeConflict:       http.StatusConflict,
	CodeUnauthorized:   http.StatusUnauthorized,
	CodeForbidden:      http.StatusForbidden,
	CodeValidation:     http.StatusBadRequest,
	CodePolicyRejected: http.StatusUnprocessableEntity,
	CodeRateLimited:    http.StatusTooManyRequests,
}

// HTTPStatus maps the code to a response status. Unknown codes are 500.
func (c Code) HTTPStatus() int {
	if status, ok := statusByCode[c]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Error is a coded domain error. Details is sent to clients verbatim.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error
}

func (e *Error) Error() string {
	if e.cause == nil {
		return e.Message
	}
	return e.Message + ": " + e.cause.Error()
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches any *Error carrying the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// HTTPStatus is the response status for the error's code.
func (e *Error) HTTPStatus() int { return e.Code.HTTPStatus() }

// WithDetails returns a copy carrying details.
func (e *Error) WithDetails(details any) *Error {
	c := *e
	c.Details = details
	return &c
}

// WithCause returns a copy wrapping err.
func (e *Error) WithCause(err error) *Error {
	c := *e
	c.cause = err
	return &c
}

// Sentinels for errors.Is.
var (
	ErrNotFound       = newError(CodeNotFound, "not found")
	ErrAlreadyExists  = newError(CodeAlreadyExists, "already exists")
	ErrUnauthorized   = newError(CodeUnauthorized, "unauthorized")
	ErrForbidden      = newError(CodeForbidden, "forbidden")
	ErrValidation     = newError(CodeValidation, "validation error")
	ErrConflict       = newError(CodeConflict, "conflict")
	ErrPolicyRejected = newError(CodePolicyRejected, "rejected by moderation")
	ErrRateLimited    = newError(CodeRateLimited, "rate limited")
	ErrInternal       = newError(CodeInternal, "internal error")
)

func newError(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

func NotFound(msg string) *Error     { return newError(CodeNotFound, msg) }
func Unauthorized(msg string) *Error { return newError(CodeUnauthorized, msg) }
func Forbidden(msg string) *Error    { return newError(CodeForbidden, msg) }
func Validation(msg string) *Error   { return newError(CodeValidation, msg) }
func Conflict(msg string) *Error     { return newError(CodeConflict, msg) }
func RateLimited(msg string) *Error  { return newError(CodeRateLimited, msg) }
func Internal(msg string) *Error     { return newError(CodeInternal, msg) }

// Validationf formats a validation message.
func Validationf(format string, args ...any) *Error {
	return newError(CodeValidation, fmt.Sprintf(format, args...))
}

// ValidationWithDetails is a validation error with per-field details.
func ValidationWithDetails(msg string, details any) *Error {
	return newError(CodeValidation, msg).WithDetails(details)
}

// PolicyRejected is returned for content the moderation gate refused.
// Details carries the outcome so clients can tell removal from review.
func PolicyRejected(msg string, details any) *Error {
	return newError(CodePolicyRejected, msg).WithDetails(details)
}

// Wrap attaches a code and message to err.
func Wrap(err error, code Code, msg string) *Error {
	return newError(code, msg).WithCause(err)
}
