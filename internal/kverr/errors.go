package kverr

import "fmt"

// ErrorType classifies an error into one of the kinds the wire protocol
// can report back to a client.
type ErrorType string

const (
	// ErrorTypeNotFound indicates the requested key or member was not found
	ErrorTypeNotFound ErrorType = "NOT_FOUND"
	// ErrorTypeWrongType indicates an operation applied to a value of an incompatible kind
	ErrorTypeWrongType ErrorType = "WRONG_TYPE"
	// ErrorTypeBadArguments indicates a malformed command or argument count
	ErrorTypeBadArguments ErrorType = "BAD_ARGUMENTS"
	// ErrorTypeProtocol indicates a malformed protocol frame
	ErrorTypeProtocol ErrorType = "PROTOCOL"
	// ErrorTypeInternal indicates an internal server error, e.g. a persistence failure
	ErrorTypeInternal ErrorType = "INTERNAL"
)

// KVError is the error type produced by the storage engine and codec.
type KVError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error implements the error interface
func (e *KVError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Err.Error())
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error
func (e *KVError) Unwrap() error {
	return e.Err
}

// New creates a new KVError
func New(errType ErrorType, message string, err error) *KVError {
	return &KVError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

// NotFound creates a not-found error for a key or member.
func NotFound(what string) *KVError {
	return New(ErrorTypeNotFound, what, nil)
}

// WrongType creates a wrong-type error.
func WrongType(message string) *KVError {
	return New(ErrorTypeWrongType, message, nil)
}

// BadArguments creates a bad-arguments error.
func BadArguments(message string) *KVError {
	return New(ErrorTypeBadArguments, message, nil)
}

// Protocol creates a protocol framing error.
func Protocol(message string) *KVError {
	return New(ErrorTypeProtocol, message, nil)
}

// Internal creates an internal error wrapping the underlying cause.
func Internal(message string, err error) *KVError {
	return New(ErrorTypeInternal, message, err)
}

// TypeOf returns the ErrorType of err, or ErrorTypeInternal for
// errors that did not originate here.
func TypeOf(err error) ErrorType {
	if kvErr, ok := err.(*KVError); ok {
		return kvErr.Type
	}
	return ErrorTypeInternal
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	return TypeOf(err) == ErrorTypeNotFound
}

// IsWrongType checks if the error is a wrong type error
func IsWrongType(err error) bool {
	return TypeOf(err) == ErrorTypeWrongType
}

// IsBadArguments checks if the error is a bad arguments error
func IsBadArguments(err error) bool {
	return TypeOf(err) == ErrorTypeBadArguments
}

// IsProtocol checks if the error is a protocol framing error
func IsProtocol(err error) bool {
	return TypeOf(err) == ErrorTypeProtocol
}

// IsInternal checks if the error is an internal error
func IsInternal(err error) bool {
	return TypeOf(err) == ErrorTypeInternal
}
