// Copyright 2025 The OPA Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package ndc

import (
	"errors"
	"fmt"
)

// Error is the error type returned by builders, parsers and the client. It
// never represents an airline business error: those travel inside Result.
type Error struct {
	Code string `json:"code"`
	err  error  `json:"-"`
}

const (

	// InvalidRequestErr error code returned when required caller input is absent or malformed
	InvalidRequestErr string = "invalid_request"

	// MissingDistributionChainErr error code returned when no distribution chain link is configured
	MissingDistributionChainErr string = "missing_distribution_chain"

	// InvalidDistributionChainErr error code returned when chain ordinals, roles or org ids are wrong
	InvalidDistributionChainErr string = "invalid_distribution_chain"

	// UnresolvedReferenceErr error code returned when an item points at an undeclared segment, journey or passenger
	UnresolvedReferenceErr string = "unresolved_reference"

	// SchemaErr error code returned when a response cannot be decoded as XML
	SchemaErr string = "schema_error"

	// UnexpectedRootErr error code returned when a response root is not the expected message
	UnexpectedRootErr string = "unexpected_root"

	// MarshalErr error code returned when a request document cannot be encoded
	MarshalErr string = "marshal_error"

	// TransportErr error code returned when the transport fails to deliver a request
	TransportErr string = "transport_error"
)

// Is allows matching ndc errors using errors.Is
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return (t.Code == "" || e.Code == t.Code) && (t.err == nil || errors.Is(e.err, t.err))
	}
	return false
}

// Error allows converting ndc Error to string type
func (e *Error) Error() string {
	if e.err == nil {
		return e.Code
	}
	return fmt.Sprintf("%v: %v", e.Code, e.err.Error())
}

// Wrap wraps error as an ndc error
func (e *Error) Wrap(err error) *Error {
	e.err = err
	return e
}

// Unwrap gets error wrapped in the ndc error
func (e *Error) Unwrap() error {
	return e.err
}

// NewError returns an Error with the given code wrapping err.
func NewError(code string, err error) *Error {
	return &Error{Code: code, err: err}
}

// Errorf returns an Error with the given code and a formatted cause.
func Errorf(code string, format string, args ...interface{}) *Error {
	return &Error{Code: code, err: fmt.Errorf(format, args...)}
}

// HasCode reports whether err is an ndc Error with the given code.
func HasCode(err error, code string) bool {
	return errors.Is(err, &Error{Code: code})
}
