package recording

import (
	"errors"
	"fmt"
)

// Error codes for recording operations
const (
	ErrCodeStartFailed     = "START_FAILED"
	ErrCodeAlreadyActive   = "ALREADY_ACTIVE"
	ErrCodeNoActiveSession = "NO_ACTIVE_SESSION"
	ErrCodeEncodeFailed    = "ENCODE_FAILED"
	ErrCodeUploadFailed    = "UPLOAD_FAILED"
	ErrCodePersistFailed   = "PERSIST_FAILED"
	ErrCodeNotifyFailed    = "NOTIFY_FAILED"
)

// Error is a recording error with a stable code
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a recording error
func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError creates a recording error wrapping an underlying cause
func WrapError(code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// IsCode reports whether err is a recording error with the given code
func IsCode(err error, code string) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}
