// Copyright 2024 the Landtable authors
// https://github.com/iamawatermelo/landtable
// This file is part of Landtable and is shared under the Polyform Perimeter
// license version 1.0.1. See the LICENSE.md for more information.

// Package apierror defines the gateway's typed error envelope, as
// described by the "Exit/error shape" section of the API contract.
package apierror

import (
	"fmt"

	"github.com/pkg/errors"
)

// Type is one of the small set of API error kinds the gateway can
// return. NotAllowed and RateLimited are never constructed in this
// module; TemporarilyUnavailable is returned when no backend or database
// connection can be obtained for a request.
type Type string

const (
	NotFound               Type = "NOT_FOUND"
	NotAllowed             Type = "NOT_ALLOWED"
	BadRequest             Type = "BAD_REQUEST"
	RateLimited            Type = "RATE_LIMITED"
	InternalError          Type = "INTERNAL_ERROR"
	TemporarilyUnavailable Type = "TEMPORARILY_UNAVAILABLE"
)

var defaultCodes = map[Type]int{
	NotFound:               404,
	NotAllowed:             403,
	BadRequest:             400,
	RateLimited:            429,
	InternalError:          500,
	TemporarilyUnavailable: 503,
}

// Error is the gateway's API-visible error shape. It always wraps an
// inner cause (via errors.WithStack) so operator logs retain a stack
// trace even though only Code/Type/Message/Detail cross the wire.
type Error struct {
	Code    int    `json:"code"`
	Kind    Type   `json:"type"`
	Message string `json:"message"`
	Detail  any    `json:"detail,omitempty"`

	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (%s): %s", e.Kind, "apierror", e.Message)
}

// Unwrap exposes the original cause for errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.cause }

func newf(kind Type, cause error, format string, args ...any) *Error {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	if cause == nil {
		cause = errors.New(msg)
	}
	return &Error{
		Code:    defaultCodes[kind],
		Kind:    kind,
		Message: msg,
		cause:   errors.WithStack(cause),
	}
}

// NotFoundf builds a 404 NOT_FOUND error.
func NotFoundf(format string, args ...any) *Error {
	return newf(NotFound, nil, format, args...)
}

// BadRequestf builds a 400 BAD_REQUEST error.
func BadRequestf(format string, args ...any) *Error {
	return newf(BadRequest, nil, format, args...)
}

// Internalf builds a 500 INTERNAL_ERROR error with a detail payload,
// per spec: database syntax errors after lowering must include the
// offending SQL and values for operator debugging.
func Internalf(detail any, format string, args ...any) *Error {
	e := newf(InternalError, nil, format, args...)
	e.Detail = detail
	return e
}

// Wrap attaches kind/message to an existing error, preserving it as the
// cause for stack-trace purposes.
func Wrap(kind Type, cause error, format string, args ...any) *Error {
	return newf(kind, cause, format, args...)
}

// As reports whether err is (or wraps) an *Error, in the style of
// errors.As.
func As(err error) (*Error, bool) {
	var apiErr *Error
	ok := errors.As(err, &apiErr)
	return apiErr, ok
}
