package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	ErrorTypeCipher          ErrorType = "cipher"
	ErrorTypePadding         ErrorType = "padding"
	ErrorTypeMalformedBundle ErrorType = "malformed_bundle"
	ErrorTypeNotFound        ErrorType = "not_found"
	ErrorTypeConfig          ErrorType = "config"
	ErrorTypeNetwork         ErrorType = "network"
	ErrorTypeRateLimit       ErrorType = "rate_limit"
	ErrorTypeAuth            ErrorType = "auth"
	ErrorTypeServerError     ErrorType = "server_error"
	ErrorTypeUnknown         ErrorType = "unknown"
)

// Error carries a type, an optional pipeline stage (1..8) or HTTP code,
// and the underlying cause.
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	Stage   int
	Err     error
}

func (e *Error) Error() string {
	var s string
	switch {
	case e.Stage > 0:
		s = fmt.Sprintf("%s error (stage %d): %s", e.Type, e.Stage, e.Message)
	case e.Code != 0:
		s = fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
	default:
		s = fmt.Sprintf("%s error: %s", e.Type, e.Message)
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same type. A target with a
// non-zero Stage must also match the stage.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Type != e.Type {
		return false
	}
	return t.Stage == 0 || t.Stage == e.Stage
}

// New creates a typed error
func New(errorType ErrorType, message string) *Error {
	return &Error{Type: errorType, Message: message}
}

// Wrap creates a typed error around an existing cause
func Wrap(errorType ErrorType, err error, message string) *Error {
	return &Error{Type: errorType, Message: message, Err: err}
}

// NewCipherError reports a key/algorithm mismatch
func NewCipherError(message string, err error) *Error {
	return Wrap(ErrorTypeCipher, err, message)
}

// NewPaddingError reports corrupted ciphertext or a wrong key
func NewPaddingError(message string) *Error {
	return New(ErrorTypePadding, message)
}

// NewMalformedBundleError reports a bundle with missing, extra or unreadable fields
func NewMalformedBundleError(message string, err error) *Error {
	return Wrap(ErrorTypeMalformedBundle, err, message)
}

// NewNotFoundError reports a missing resource
func NewNotFoundError(message string, err error) *Error {
	return Wrap(ErrorTypeNotFound, err, message)
}

// AtStage returns a copy of err tagged with the given pipeline stage.
// Errors that are not *Error are wrapped as cipher errors.
func AtStage(err error, stage int) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		tagged := *e
		tagged.Stage = stage
		return &tagged
	}
	return &Error{Type: ErrorTypeCipher, Message: "stage failed", Stage: stage, Err: err}
}

// TypeOf returns the ErrorType of err, or ErrorTypeUnknown
func TypeOf(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// IsType checks whether err is (or wraps) an *Error of the given type
func IsType(err error, errorType ErrorType) bool {
	return err != nil && TypeOf(err) == errorType
}

// StageOf returns the pipeline stage recorded in err, or 0
func StageOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Stage
	}
	return 0
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServerError:
		return true
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // Network error
		return true
	case 429:
		return true
	case 401, 403, 404:
		return false
	default:
		return statusCode >= 500
	}
}
