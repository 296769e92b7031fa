// Package errors provides structured error types for urnlab.
// Errors carry a stable code, a category, context, a cause, and suggestions
// that the CLI can show to the experimenter.
package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
)

// Category classifies errors for consistent handling and display.
type Category string

const (
	CategoryConfig     Category = "config"     // Configuration loading/parsing errors
	CategoryValidation Category = "validation" // Invalid arguments and missing fields
	CategorySession    Category = "session"    // Participant session state errors
	CategoryIO         Category = "io"         // Ledger and export file errors
	CategoryInternal   Category = "internal"   // Invariant violations
)

// Error is a structured error with context and suggestions.
type Error struct {
	// Code is a unique identifier for this error type (e.g., "PARTITION_INFEASIBLE").
	Code string

	// Category classifies this error for consistent handling.
	Category Category

	// Message is the primary error message describing what went wrong.
	Message string

	// Context provides additional key-value details about the error.
	Context map[string]string

	// Cause is the underlying error, if any.
	Cause error

	// Suggestions are remediation steps for the experimenter.
	Suggestions []string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a new Error with the given code, category, and message.
func New(code string, category Category, message string) *Error {
	return &Error{
		Code:     code,
		Category: category,
		Message:  message,
		Context:  make(map[string]string),
	}
}

// Newf creates a new Error with a formatted message.
func Newf(code string, category Category, format string, args ...any) *Error {
	return New(code, category, fmt.Sprintf(format, args...))
}

// WithContext adds a context key-value pair and returns the error for chaining.
func (e *Error) WithContext(key, value string) *Error {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = value
	return e
}

// WithCause wraps an underlying error and returns the error for chaining.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithSuggestion adds a remediation suggestion and returns the error for chaining.
func (e *Error) WithSuggestion(suggestion string) *Error {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// HasContext returns true if the error has context information.
func (e *Error) HasContext() bool {
	return len(e.Context) > 0
}

// HasSuggestions returns true if the error has suggestions.
func (e *Error) HasSuggestions() bool {
	return len(e.Suggestions) > 0
}

// ContextString returns the context entries as sorted key="value" pairs.
func (e *Error) ContextString() string {
	if len(e.Context) == 0 {
		return ""
	}
	keys := make([]string, 0, len(e.Context))
	for k := range e.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%q", k, e.Context[k]))
	}
	return strings.Join(parts, ", ")
}

// Wrap wraps an existing error with a structured Error.
func Wrap(err error, code string, category Category, message string) *Error {
	return New(code, category, message).WithCause(err)
}

// As finds the first *Error in err's chain.
func As(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsCode reports whether err's chain contains an *Error with the given code.
func IsCode(err error, code string) bool {
	if e, ok := As(err); ok {
		return e.Code == code
	}
	return false
}

// IsCategory reports whether err's chain contains an *Error with the given category.
func IsCategory(err error, category Category) bool {
	if e, ok := As(err); ok {
		return e.Category == category
	}
	return false
}

// -----------------------------------------------------------------------------
// Category constructors
// -----------------------------------------------------------------------------

// ConfigError creates a configuration error.
func ConfigError(code, message string) *Error {
	return New(code, CategoryConfig, message)
}

// ValidationErrorf creates a validation error with a formatted message.
// Use for infeasible arguments, invalid urn definitions, and missing fields.
func ValidationErrorf(code, format string, args ...any) *Error {
	return Newf(code, CategoryValidation, format, args...)
}

// SessionErrorf creates a session state error with a formatted message.
func SessionErrorf(code, format string, args ...any) *Error {
	return Newf(code, CategorySession, format, args...)
}

// InternalErrorf creates an internal error with a formatted message.
// Use for invariant violations that indicate a configuration defect upstream.
func InternalErrorf(code, format string, args ...any) *Error {
	return Newf(code, CategoryInternal, format, args...)
}

// WrapConfig wraps an error as a configuration error.
func WrapConfig(err error, code, message string) *Error {
	return Wrap(err, code, CategoryConfig, message)
}

// WrapIO wraps an error as an IO error.
func WrapIO(err error, code, message string) *Error {
	return Wrap(err, code, CategoryIO, message)
}
