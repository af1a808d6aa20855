package errors

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// Error types for the translation index and its file synchronization
type ErrorType string

const (
	// Index errors
	ErrorTypeIndex      ErrorType = "index"
	ErrorTypeValidation ErrorType = "validation"

	// File errors
	ErrorTypeFileWatch    ErrorType = "file_watch"
	ErrorTypeFileNotFound ErrorType = "file_not_found"
	ErrorTypePermission   ErrorType = "permission"
	ErrorTypeParse        ErrorType = "parse"

	// Sync errors
	ErrorTypeSync ErrorType = "sync"

	// Configuration errors
	ErrorTypeConfig ErrorType = "config"
)

// Sentinel errors for errors.Is checks
var (
	ErrInvalidKeyPath     = errors.New("invalid key path")
	ErrNotFound           = errors.New("not found")
	ErrStructuralConflict = errors.New("structural conflict")
	ErrDirectoryMissing   = errors.New("directory does not exist")
)

// IndexError is returned when a mutation of the index is rejected.
// The mutation is never applied when an IndexError is returned.
type IndexError struct {
	Type       ErrorType
	Operation  string
	KeyPath    string
	Language   string
	Underlying error
	Timestamp  time.Time
}

// NewIndexError creates a new index error with context
func NewIndexError(op, keyPath string, err error) *IndexError {
	return &IndexError{
		Type:       ErrorTypeIndex,
		Operation:  op,
		KeyPath:    keyPath,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// WithLanguage adds the language to the error
func (e *IndexError) WithLanguage(language string) *IndexError {
	e.Language = language
	return e
}

// Error implements the error interface
func (e *IndexError) Error() string {
	if e.Language != "" {
		return fmt.Sprintf("%s %s failed for %q [%s]: %v", e.Type, e.Operation, e.KeyPath, e.Language, e.Underlying)
	}
	return fmt.Sprintf("%s %s failed for %q: %v", e.Type, e.Operation, e.KeyPath, e.Underlying)
}

// Unwrap returns the underlying error for errors.Is/As
func (e *IndexError) Unwrap() error {
	return e.Underlying
}

// ValidationError reports a structure or consistency failure
type ValidationError struct {
	Type       ErrorType
	Language   string
	Message    string
	Underlying error
	Timestamp  time.Time
}

// NewValidationError creates a new validation error
func NewValidationError(language, message string, err error) *ValidationError {
	return &ValidationError{
		Type:       ErrorTypeValidation,
		Language:   language,
		Message:    message,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	msg := e.Message
	if e.Language != "" {
		msg = fmt.Sprintf("%s (language %s)", msg, e.Language)
	}
	if e.Underlying != nil {
		return fmt.Sprintf("validation failed: %s: %v", msg, e.Underlying)
	}
	return "validation failed: " + msg
}

// Unwrap returns the underlying error
func (e *ValidationError) Unwrap() error {
	return e.Underlying
}

// FileWatchError represents a watcher-level failure: missing directory, unreadable or unparsable file
type FileWatchError struct {
	Type       ErrorType
	Path       string
	Operation  string
	Underlying error
	Timestamp  time.Time
}

// NewFileWatchError creates a new file watch error, classifying the underlying cause
func NewFileWatchError(op, path string, err error) *FileWatchError {
	errorType := ErrorTypeFileWatch
	switch {
	case errors.Is(err, os.ErrNotExist), errors.Is(err, ErrDirectoryMissing):
		errorType = ErrorTypeFileNotFound
	case errors.Is(err, os.ErrPermission):
		errorType = ErrorTypePermission
	}

	return &FileWatchError{
		Type:       errorType,
		Path:       path,
		Operation:  op,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// NewParseError wraps a JSON parse failure with the file it came from
func NewParseError(path string, err error) *FileWatchError {
	return &FileWatchError{
		Type:       ErrorTypeParse,
		Path:       path,
		Operation:  "parse",
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *FileWatchError) Error() string {
	return fmt.Sprintf("file %s failed for %s: %v", e.Operation, e.Path, e.Underlying)
}

// Unwrap returns the underlying error
func (e *FileWatchError) Unwrap() error {
	return e.Underlying
}

// SyncError represents a failure writing one language back to disk
type SyncError struct {
	Type       ErrorType
	Language   string
	Path       string
	KeyPath    string
	Underlying error
	Timestamp  time.Time
}

// NewSyncError creates a new sync error
func NewSyncError(language, path string, err error) *SyncError {
	return &SyncError{
		Type:       ErrorTypeSync,
		Language:   language,
		Path:       path,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// WithKey adds the key path that failed
func (e *SyncError) WithKey(keyPath string) *SyncError {
	e.KeyPath = keyPath
	return e
}

// Error implements the error interface
func (e *SyncError) Error() string {
	if e.KeyPath != "" {
		return fmt.Sprintf("sync of %s failed for key %q in %s: %v", e.Language, e.KeyPath, e.Path, e.Underlying)
	}
	return fmt.Sprintf("sync of %s failed for %s: %v", e.Language, e.Path, e.Underlying)
}

// Unwrap returns the underlying error
func (e *SyncError) Unwrap() error {
	return e.Underlying
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field      string
	Value      string
	Underlying error
	Timestamp  time.Time
}

// NewConfigError creates a new config error
func NewConfigError(field, value string, err error) *ConfigError {
	return &ConfigError{
		Field:      field,
		Value:      value,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error for field %s (value %s): %v", e.Field, e.Value, e.Underlying)
}

// Unwrap returns the underlying error
func (e *ConfigError) Unwrap() error {
	return e.Underlying
}

// MultiError represents multiple errors
type MultiError struct {
	Errors []error
}

// NewMultiError creates a new multi-error
func NewMultiError(errs []error) *MultiError {
	// Filter out nil errors
	filtered := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	return &MultiError{Errors: filtered}
}

// ErrorOrNil returns nil when no errors were collected
func (e *MultiError) ErrorOrNil() error {
	if e == nil || len(e.Errors) == 0 {
		return nil
	}
	return e
}

// Error implements the error interface
func (e *MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors: %v", len(e.Errors), e.Errors)
}

// Unwrap returns all errors
func (e *MultiError) Unwrap() []error {
	return e.Errors
}
