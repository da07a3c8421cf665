package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error
type Kind string

const (
	// KindAPI covers network, protocol and backend-reported failures
	KindAPI Kind = "api"
	// KindFile covers filesystem and validation failures
	KindFile Kind = "file"
	// KindAudio covers format and device issues
	KindAudio Kind = "audio"
	// KindConfig covers settings and configuration validation
	KindConfig Kind = "config"
	// KindGeneric is everything else
	KindGeneric Kind = "generic"
)

// AppError represents a structured application error
type AppError struct {
	Kind    Kind                   `json:"kind"`
	Message string                 `json:"message"`
	Source  string                 `json:"source,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("%s error: %s (source: %s)", e.Kind, e.Message, e.Source)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithSource records a human readable description of where the error came from
func (e *AppError) WithSource(source string) *AppError {
	e.Source = source
	return e
}

// New creates a new AppError
func New(kind Kind, message string) *AppError {
	return &AppError{Kind: kind, Message: message}
}

// Newf creates a new AppError with formatted message
func Newf(kind Kind, format string, args ...interface{}) *AppError {
	return &AppError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with an AppError. The cause's text becomes the source description.
func Wrap(cause error, kind Kind, message string) *AppError {
	appErr := &AppError{Kind: kind, Message: message, Cause: cause}
	if cause != nil {
		appErr.Source = cause.Error()
	}
	return appErr
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(cause error, kind Kind, format string, args ...interface{}) *AppError {
	return Wrap(cause, kind, fmt.Sprintf(format, args...))
}

// Common error constructors

// API creates a backend/network error
func API(message string) *AppError {
	return New(KindAPI, message)
}

// APIf creates a backend/network error with formatted message
func APIf(format string, args ...interface{}) *AppError {
	return Newf(KindAPI, format, args...)
}

// File creates a filesystem or validation error
func File(message string) *AppError {
	return New(KindFile, message)
}

// Audio creates an audio format/device error
func Audio(message string) *AppError {
	return New(KindAudio, message)
}

// Config creates a configuration error for a key
func Config(key string, reason string) *AppError {
	return New(KindConfig, fmt.Sprintf("configuration error for '%s': %s", key, reason)).
		WithDetail("key", key)
}

// Generic creates an uncategorised error
func Generic(message string) *AppError {
	return New(KindGeneric, message)
}

// Is checks if an error (or anything it wraps) is an AppError of the given kind
func Is(err error, kind Kind) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}

// KindOf extracts the error kind from an error
func KindOf(err error) Kind {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindGeneric
}

// Message returns the human readable message without the kind prefix
func Message(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// HTTPStatus maps an error kind onto a status code for the local API
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindFile, KindConfig:
		return http.StatusBadRequest
	case KindAudio:
		return http.StatusUnprocessableEntity
	case KindAPI:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
