package conductor

import (
	"errors"
	"fmt"

	"github.com/coregx/conductor/frame"
)

// Error represents a conductor error with categorization.
type Error struct {
	// Code is a machine-readable error code
	Code string

	// Message is a human-readable error message
	Message string

	// Err is the underlying error (if any)
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Error codes for conductor operations.
const (
	// ErrCodeNoData indicates no data was found.
	ErrCodeNoData = "NO_DATA"

	// ErrCodeValidation indicates validation failed.
	ErrCodeValidation = "VALIDATION_ERROR"

	// ErrCodeConfiguration indicates invalid configuration.
	ErrCodeConfiguration = "CONFIGURATION_ERROR"

	// ErrCodeDatabase indicates a journal database operation failed.
	ErrCodeDatabase = "DATABASE_ERROR"

	// ErrCodeTransport indicates an accept, read or write failure on a socket.
	ErrCodeTransport = "TRANSPORT_ERROR"

	// ErrCodeMalformedHeader indicates a frame header could not be decoded.
	ErrCodeMalformedHeader = "MALFORMED_HEADER"

	// ErrCodeRegistration indicates a subscriber sent no usable topic list.
	ErrCodeRegistration = "REGISTRATION_ERROR"
)

// Common errors.
var (
	// ErrNoData is returned when a query returns no results.
	// This is not necessarily an error condition in all cases.
	ErrNoData = &Error{
		Code:    ErrCodeNoData,
		Message: "no data found",
	}

	// ErrBrokerClosed is returned when starting a broker that has been closed.
	ErrBrokerClosed = &Error{
		Code:    ErrCodeTransport,
		Message: "broker closed",
	}
)

// NewError creates a new Error with the given code and message.
func NewError(code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// NewErrorWithCause creates a new Error wrapping an underlying error.
func NewErrorWithCause(code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     cause,
	}
}

// IsNoData checks if an error is ErrNoData.
func IsNoData(err error) bool {
	var conductorErr *Error
	if errors.As(err, &conductorErr) {
		return conductorErr.Code == ErrCodeNoData
	}
	return errors.Is(err, ErrNoData)
}

// IsMalformedHeader checks if an error reports an undecodable frame header.
func IsMalformedHeader(err error) bool {
	var conductorErr *Error
	if errors.As(err, &conductorErr) && conductorErr.Code == ErrCodeMalformedHeader {
		return true
	}
	return errors.Is(err, frame.ErrMalformedHeader)
}

// IsCode reports whether err is a conductor *Error with the given code.
func IsCode(err error, code string) bool {
	var conductorErr *Error
	if errors.As(err, &conductorErr) {
		return conductorErr.Code == code
	}
	return false
}
