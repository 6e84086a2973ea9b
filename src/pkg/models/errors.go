package models

import (
	"errors"
	"fmt"
)

var (
	// ErrStoreIO matches every folder, listing or copy failure against an artifact store
	ErrStoreIO = errors.New("artifact store i/o failure")
	// ErrComparatorInvocation matches a comparator that could not run to completion
	ErrComparatorInvocation = errors.New("comparator invocation failure")
	// ErrConfiguration matches invalid step configuration
	ErrConfiguration = errors.New("invalid configuration")
)

// StoreIOError is fatal to the current pass
type StoreIOError struct {
	Op   string // e.g. "mkdir", "list", "copy", "delete"
	Path string
	Err  error
}

func (e *StoreIOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StoreIOError) Unwrap() error { return e.Err }

func (e *StoreIOError) Is(target error) bool { return target == ErrStoreIO }

// ComparatorInvocationError means the comparator failed to start or was interrupted.
// A comparator that ran and reported a difference is not an error.
type ComparatorInvocationError struct {
	Comparator string
	Screen     string
	Err        error
}

func (e *ComparatorInvocationError) Error() string {
	return fmt.Sprintf("comparator %s on screen %s: %v", e.Comparator, e.Screen, e.Err)
}

func (e *ComparatorInvocationError) Unwrap() error { return e.Err }

func (e *ComparatorInvocationError) Is(target error) bool { return target == ErrComparatorInvocation }

// ConfigurationError is surfaced before any pass runs
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// NewConfigurationError formats a configuration error for field
func NewConfigurationError(field, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
