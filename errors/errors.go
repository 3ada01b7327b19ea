// Package errors provides standardized error handling patterns for target-parquet.
// It includes error classification, standard error variables, and helper functions
// for consistent error wrapping and classification across the pipeline.
package errors

import (
	"errors"
	"fmt"
)

// ErrorClass represents the classification of errors for handling purposes
type ErrorClass int

const (
	// ErrorParse represents a malformed input line that cannot be decoded
	ErrorParse ErrorClass = iota
	// ErrorProtocol represents a Singer protocol violation (record before schema)
	ErrorProtocol
	// ErrorValidation represents a record that fails its stream's schema validation
	ErrorValidation
	// ErrorWrite represents an encode or filesystem failure during a flush
	ErrorWrite
	// ErrorConfig represents errors due to invalid or missing configuration
	ErrorConfig
)

// String returns the string representation of ErrorClass
func (ec ErrorClass) String() string {
	switch ec {
	case ErrorParse:
		return "parse"
	case ErrorProtocol:
		return "protocol"
	case ErrorValidation:
		return "validation"
	case ErrorWrite:
		return "write"
	case ErrorConfig:
		return "config"
	default:
		return "unknown"
	}
}

// Standard error variables for common conditions.
// All of these are fatal for the run; the pipeline performs no retries.
var (
	// Input decoding errors
	ErrParse       = errors.New("unable to parse input line")
	ErrUnknownType = errors.New("unknown message type")

	// Protocol errors
	ErrProtocol       = errors.New("record encountered before a corresponding schema")
	ErrMissingStream  = errors.New("message missing stream name")
	ErrMissingPayload = errors.New("message missing payload")

	// Validation errors
	ErrValidation = errors.New("record failed schema validation")

	// Writer errors
	ErrWrite      = errors.New("failed to write batch")
	ErrEmptyBatch = errors.New("batch contains no rows")

	// Configuration errors
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrMissingConfig = errors.New("missing required configuration")
)

// ClassifiedError wraps an error with its classification
type ClassifiedError struct {
	Class     ErrorClass
	Err       error
	Message   string
	Component string
	Operation string
}

// Error implements the error interface
func (ce *ClassifiedError) Error() string {
	if ce.Message != "" {
		return ce.Message
	}
	return ce.Err.Error()
}

// Unwrap returns the underlying error
func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

// IsParse checks if an error is an input parse failure
func IsParse(err error) bool {
	return classIs(err, ErrorParse) || errors.Is(err, ErrParse)
}

// IsProtocol checks if an error is a Singer protocol violation
func IsProtocol(err error) bool {
	return classIs(err, ErrorProtocol) || errors.Is(err, ErrProtocol)
}

// IsValidation checks if an error is a schema validation failure
func IsValidation(err error) bool {
	return classIs(err, ErrorValidation) || errors.Is(err, ErrValidation)
}

// IsWrite checks if an error is a flush encode/write failure
func IsWrite(err error) bool {
	return classIs(err, ErrorWrite) || errors.Is(err, ErrWrite)
}

// IsConfig checks if an error is a configuration problem
func IsConfig(err error) bool {
	return classIs(err, ErrorConfig) ||
		errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrMissingConfig)
}

func classIs(err error, class ErrorClass) bool {
	if err == nil {
		return false
	}
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == class
	}
	return false
}

// Classify returns the error class for an error. Errors that carry no
// classification default to ErrorWrite, the broadest fatal category.
func Classify(err error) ErrorClass {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class
	}
	switch {
	case IsParse(err):
		return ErrorParse
	case IsProtocol(err):
		return ErrorProtocol
	case IsValidation(err):
		return ErrorValidation
	case IsConfig(err):
		return ErrorConfig
	default:
		return ErrorWrite
	}
}

// newClassified creates a new classified error.
// This is an internal helper - use the Wrap* functions instead.
func newClassified(class ErrorClass, err error, component, operation, message string) *ClassifiedError {
	return &ClassifiedError{
		Class:     class,
		Err:       err,
		Message:   message,
		Component: component,
		Operation: operation,
	}
}

// Wrap creates a standardized error with context following the pattern:
// "component.method: action failed: %w"
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

// WrapParse wraps an error as a parse failure with context
func WrapParse(err error, component, method, action string) error {
	return wrapClass(ErrorParse, err, component, method, action)
}

// WrapProtocol wraps an error as a protocol violation with context
func WrapProtocol(err error, component, method, action string) error {
	return wrapClass(ErrorProtocol, err, component, method, action)
}

// WrapValidation wraps an error as a validation failure with context
func WrapValidation(err error, component, method, action string) error {
	return wrapClass(ErrorValidation, err, component, method, action)
}

// WrapWrite wraps an error as a flush write failure with context
func WrapWrite(err error, component, method, action string) error {
	return wrapClass(ErrorWrite, err, component, method, action)
}

// WrapConfig wraps an error as a configuration problem with context
func WrapConfig(err error, component, method, action string) error {
	return wrapClass(ErrorConfig, err, component, method, action)
}

func wrapClass(class ErrorClass, err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(class, wrappedErr, component, method, wrappedErr.Error())
}
