package property

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes property errors.
type ErrorCode string

const (
	// ErrCodeTypeMismatch indicates a value does not satisfy the key's kind.
	ErrCodeTypeMismatch ErrorCode = "TYPE_MISMATCH"

	// ErrCodeKeyNotFound indicates a strict read found no value.
	ErrCodeKeyNotFound ErrorCode = "KEY_NOT_FOUND"
)

// Sentinels for errors.Is. Any *Error with the same Code matches.
var (
	ErrTypeMismatch = &Error{Code: ErrCodeTypeMismatch}
	ErrKeyNotFound  = &Error{Code: ErrCodeKeyNotFound}
)

// Error is a property-level failure. These are caller errors and are never
// retried.
type Error struct {
	Code    ErrorCode
	Key     string
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Key != "" && e.Message != "":
		return fmt.Sprintf("%s: %s (key=%s)", e.Code, e.Message, e.Key)
	case e.Key != "":
		return fmt.Sprintf("%s (key=%s)", e.Code, e.Key)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return string(e.Code)
}

// Is matches any *Error carrying the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// NotFound builds the KEY_NOT_FOUND error for k. Exported for stores layered
// on top of PlainStore.
func NotFound(k *Key) error {
	return &Error{Code: ErrCodeKeyNotFound, Key: k.name, Message: "no value stored"}
}

// Code extracts the error code from err, or "" if err is not an *Error.
func Code(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
