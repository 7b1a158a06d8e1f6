// Package domain defines core types and errors for the dbt CI copier.
package domain

import "fmt"

// ManifestParseError indicates a missing or malformed production manifest.
// It is fatal: the run aborts before any database mutation.
type ManifestParseError struct {
	Message string
}

func (e *ManifestParseError) Error() string { return e.Message }

// SelectionError indicates the external modified-node selection failed
// (non-zero exit or unparseable output). Fatal.
type SelectionError struct {
	Message string
}

func (e *SelectionError) Error() string { return e.Message }

// SchemaInferenceError indicates a node's schema cannot be mapped onto the
// CI schema. Fatal: a partial CI dataset is worse than a clear failure.
type SchemaInferenceError struct {
	Message string
}

func (e *SchemaInferenceError) Error() string { return e.Message }

// CopyError wraps a driver-level failure for a single table copy. It is
// recorded in that task's result and does not abort sibling copies.
type CopyError struct {
	Source string
	Target string
	Cause  error
}

func (e *CopyError) Error() string {
	return fmt.Sprintf("copy %s to %s: %v", e.Source, e.Target, e.Cause)
}

func (e *CopyError) Unwrap() error { return e.Cause }

// ErrManifestParse creates a ManifestParseError with a formatted message.
func ErrManifestParse(format string, args ...interface{}) *ManifestParseError {
	return &ManifestParseError{Message: fmt.Sprintf(format, args...)}
}

// ErrSelection creates a SelectionError with a formatted message.
func ErrSelection(format string, args ...interface{}) *SelectionError {
	return &SelectionError{Message: fmt.Sprintf(format, args...)}
}

// ErrSchemaInference creates a SchemaInferenceError with a formatted message.
func ErrSchemaInference(format string, args ...interface{}) *SchemaInferenceError {
	return &SchemaInferenceError{Message: fmt.Sprintf(format, args...)}
}
