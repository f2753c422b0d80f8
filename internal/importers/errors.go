package importers

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrObjectNotFound is returned by an ObjectStore for an unknown object id.
var ErrObjectNotFound = errors.New("object not found")

// SkippedError signals that a record is intentionally left unprocessed.
type SkippedError struct {
	Reason string
}

func (e *SkippedError) Error() string {
	if e.Reason == "" {
		return "item skipped"
	}
	return "item skipped: " + e.Reason
}

// ValidationError carries the per-field messages of a rejected form.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e.Fields[name])
	}
	return "form validation failed: " + strings.Join(parts, "; ")
}

// ConfigurationError reports a task that cannot be run as configured, such as
// an unknown importer or reader code.
type ConfigurationError struct {
	Msg string
	Err error
}

func (e *ConfigurationError) Error() string {
	if e.Err == nil {
		return "importer configuration error: " + e.Msg
	}
	return fmt.Sprintf("importer configuration error: %s: %v", e.Msg, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}
