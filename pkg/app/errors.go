package app

import (
	"fmt"
	"time"
)

// ErrorType represents the kinds of errors reported on the port selection page
type ErrorType int

const (
	// ErrorSerial is a port that could not be opened
	ErrorSerial ErrorType = iota
	// ErrorDiscovery is a failed port scan
	ErrorDiscovery
	// ErrorLink is a session that lost its device
	ErrorLink
)

// String returns the string representation of ErrorType
func (e ErrorType) String() string {
	types := []string{"serial", "discovery", "link"}

	if int(e) >= 0 && int(e) < len(types) {
		return types[e]
	}
	return "unknown"
}

// AppError represents an application-specific error
type AppError struct {
	Type      ErrorType
	Message   string
	Cause     error
	Timestamp time.Time
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s", e.Type.String(), e.Message, e.Cause.Error())
	}
	return fmt.Sprintf("[%s] %s", e.Type.String(), e.Message)
}

// Unwrap returns the underlying cause
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError creates a new application error
func NewAppError(errorType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:      errorType,
		Message:   message,
		Cause:     cause,
		Timestamp: time.Now(),
	}
}
