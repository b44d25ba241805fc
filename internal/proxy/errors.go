package proxy

import (
	"errors"
	"fmt"
)

// Error is returned by AccessControl and Relayer operations. The command
// layer renders it to the invoking user based on Code.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Key is the proxy key involved, if any.
	Key string

	// UserID is the acting user, if any.
	UserID string

	// Err is the underlying cause for infrastructure and store failures.
	Err error
}

// ErrorCode categorizes proxy errors.
type ErrorCode string

const (
	// ErrCodeDuplicateKey indicates the proxy key is already taken.
	ErrCodeDuplicateKey ErrorCode = "DUPLICATE_KEY"

	// ErrCodeProxyNotFound indicates the operation referenced an unknown key.
	ErrCodeProxyNotFound ErrorCode = "PROXY_NOT_FOUND"

	// ErrCodeUnauthorized indicates the caller holds no grant for the proxy.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"

	// ErrCodeInvalidInput indicates a required argument was empty.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"

	// ErrCodeInfrastructure indicates provisioning, sending through, or
	// resolving the host of a transient binding failed.
	ErrCodeInfrastructure ErrorCode = "INFRASTRUCTURE_FAILURE"

	// ErrCodeStore indicates the persistence layer failed.
	ErrCodeStore ErrorCode = "STORE_FAILURE"
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Key != "" {
		msg += fmt.Sprintf(" (key=%s)", e.Key)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf returns the ErrorCode carried by err, or "" if err is not an *Error.
func CodeOf(err error) ErrorCode {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

// IsDuplicateKey returns true if err is a duplicate key error.
func IsDuplicateKey(err error) bool { return CodeOf(err) == ErrCodeDuplicateKey }

// IsNotFound returns true if err is a proxy-not-found error.
func IsNotFound(err error) bool { return CodeOf(err) == ErrCodeProxyNotFound }

// IsUnauthorized returns true if err is an authorization error.
func IsUnauthorized(err error) bool { return CodeOf(err) == ErrCodeUnauthorized }

// IsInfrastructure returns true if err is an infrastructure failure.
func IsInfrastructure(err error) bool { return CodeOf(err) == ErrCodeInfrastructure }

// IsStoreFailure returns true if err is a persistence failure.
func IsStoreFailure(err error) bool { return CodeOf(err) == ErrCodeStore }

func newDuplicateKeyError(key string) *Error {
	return &Error{
		Code:    ErrCodeDuplicateKey,
		Message: "proxy key already exists",
		Key:     key,
	}
}

func newNotFoundError(key string) *Error {
	return &Error{
		Code:    ErrCodeProxyNotFound,
		Message: "proxy not found",
		Key:     key,
	}
}

func newUnauthorizedError(key, userID string) *Error {
	return &Error{
		Code:    ErrCodeUnauthorized,
		Message: "user has no access to proxy",
		Key:     key,
		UserID:  userID,
	}
}

func newInvalidInputError(message string) *Error {
	return &Error{
		Code:    ErrCodeInvalidInput,
		Message: message,
	}
}

func newInfrastructureError(op, key string, err error) *Error {
	return &Error{
		Code:    ErrCodeInfrastructure,
		Message: op,
		Key:     key,
		Err:     err,
	}
}

func newStoreError(op, key string, err error) *Error {
	return &Error{
		Code:    ErrCodeStore,
		Message: op,
		Key:     key,
		Err:     err,
	}
}
