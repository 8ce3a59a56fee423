package nfc

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode represents a specific type of NFC error for programmatic handling.
type ErrorCode int

const (
	// Capability and session errors (100-199)
	ErrCodeNotSupported ErrorCode = iota + 100
	ErrCodeDisabled
	ErrCodeSession
	ErrCodeTransport
	ErrCodePublish
	ErrCodeTimeout
)

// ReaderError provides structured error information for programmatic handling.
type ReaderError struct {
	Code    ErrorCode
	Op      string // Operation that failed (e.g., "StartListening", "Publish")
	TagUID  string // Optional: UID of tag involved
	Message string // Human-readable message
	Cause   error  // Underlying error
}

func (e *ReaderError) Error() string {
	var sb strings.Builder
	if e.Op != "" {
		sb.WriteString(e.Op)
		sb.WriteString(": ")
	}
	sb.WriteString(e.Message)
	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	return sb.String()
}

func (e *ReaderError) Unwrap() error {
	return e.Cause
}

func (e *ReaderError) Is(target error) bool {
	if t, ok := target.(*ReaderError); ok {
		return e.Code == t.Code
	}
	return false
}

// NewNotSupportedError creates an error for a missing capability.
func NewNotSupportedError(op string) *ReaderError {
	return &ReaderError{
		Code:    ErrCodeNotSupported,
		Op:      op,
		Message: "nfc not supported",
		Cause:   ErrNotSupported,
	}
}

// NewDisabledError creates an error for a disabled reader.
func NewDisabledError(op string) *ReaderError {
	return &ReaderError{
		Code:    ErrCodeDisabled,
		Op:      op,
		Message: "nfc reader is disabled",
		Cause:   ErrDisabled,
	}
}

// NewSessionError creates an error for listening-session failures.
func NewSessionError(op, message string, cause error) *ReaderError {
	return &ReaderError{
		Code:    ErrCodeSession,
		Op:      op,
		Message: message,
		Cause:   cause,
	}
}

// NewTransportError creates an error for agent connection failures.
func NewTransportError(op string, cause error) *ReaderError {
	return &ReaderError{
		Code:    ErrCodeTransport,
		Op:      op,
		Message: "agent connection failed",
		Cause:   cause,
	}
}

// NewPublishError creates an error for publish failures.
func NewPublishError(op, tagUID string, cause error) *ReaderError {
	return &ReaderError{
		Code:    ErrCodePublish,
		Op:      op,
		TagUID:  tagUID,
		Message: "publish failed",
		Cause:   cause,
	}
}

// NewTimeoutError creates an error for operations that ran out of time.
func NewTimeoutError(op string) *ReaderError {
	return &ReaderError{
		Code:    ErrCodeTimeout,
		Op:      op,
		Message: "operation timed out",
	}
}

// IsNotSupportedError checks if an error indicates a missing capability.
func IsNotSupportedError(err error) bool {
	if err == nil {
		return false
	}
	var rerr *ReaderError
	if errors.As(err, &rerr) {
		return rerr.Code == ErrCodeNotSupported
	}
	if errors.Is(err, ErrNotSupported) {
		return true
	}
	// Fallback to string matching for errors from other layers
	return strings.Contains(err.Error(), "not supported")
}

// IsDisabledError checks if an error indicates a disabled reader.
func IsDisabledError(err error) bool {
	if err == nil {
		return false
	}
	var rerr *ReaderError
	if errors.As(err, &rerr) {
		return rerr.Code == ErrCodeDisabled
	}
	if errors.Is(err, ErrDisabled) {
		return true
	}
	return strings.Contains(err.Error(), "disabled")
}

// IsSessionError checks if an error relates to the listening session.
func IsSessionError(err error) bool {
	if err == nil {
		return false
	}
	var rerr *ReaderError
	if errors.As(err, &rerr) {
		return rerr.Code == ErrCodeSession
	}
	return errors.Is(err, ErrSessionClaimed) || errors.Is(err, ErrNoSession)
}

// IsTransportError checks if an error indicates a connection problem.
func IsTransportError(err error) bool {
	if err == nil {
		return false
	}
	var rerr *ReaderError
	if errors.As(err, &rerr) {
		return rerr.Code == ErrCodeTransport
	}
	return false
}

// GetErrorCode extracts the ErrorCode from an error if it's a ReaderError.
// Returns 0 if the error is not a ReaderError.
func GetErrorCode(err error) ErrorCode {
	var rerr *ReaderError
	if errors.As(err, &rerr) {
		return rerr.Code
	}
	return 0
}

// WrapError wraps an existing error with NFC context.
func WrapError(code ErrorCode, op, message string, cause error) *ReaderError {
	return &ReaderError{
		Code:    code,
		Op:      op,
		Message: message,
		Cause:   cause,
	}
}

// Errorf creates a ReaderError with a formatted message.
func Errorf(code ErrorCode, op, format string, args ...interface{}) *ReaderError {
	return &ReaderError{
		Code:    code,
		Op:      op,
		Message: fmt.Sprintf(format, args...),
	}
}
