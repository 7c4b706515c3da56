package compose

import (
	"errors"
	"fmt"
)

// loadErrorKind classifies why a compose project failed to load.
type loadErrorKind int

const (
	errNotFound loadErrorKind = iota
	errPath
	errYAML
	errLoader
)

// loadError is the error type behind every Load failure. The kind selects
// the message shape; path is empty for document-level failures.
type loadError struct {
	kind  loadErrorKind
	path  string
	cause error
}

func (e *loadError) Error() string {
	switch e.kind {
	case errNotFound:
		return fmt.Sprintf("compose file not found: %s", e.path)
	case errYAML:
		return fmt.Sprintf("compose file has invalid YAML: %v", e.cause)
	case errPath:
		return fmt.Sprintf("compose path %s: %v", e.path, e.cause)
	default:
		return fmt.Sprintf("loading compose project: %v", e.cause)
	}
}

func (e *loadError) Unwrap() error {
	return e.cause
}

func notFound(path string, cause error) error {
	return &loadError{kind: errNotFound, path: path, cause: cause}
}

func badPath(path string, cause error) error {
	return &loadError{kind: errPath, path: path, cause: cause}
}

func badYAML(cause error) error {
	return &loadError{kind: errYAML, cause: cause}
}

func loaderFailed(cause error) error {
	return &loadError{kind: errLoader, cause: cause}
}

func isKind(err error, kind loadErrorKind) bool {
	var lerr *loadError
	return errors.As(err, &lerr) && lerr.kind == kind
}

// IsFileNotFoundError reports whether err means no compose file existed at
// the requested path.
func IsFileNotFoundError(err error) bool {
	return isKind(err, errNotFound)
}

// IsInvalidYAMLError reports whether err stems from unparseable compose
// document content.
func IsInvalidYAMLError(err error) bool {
	return isKind(err, errYAML)
}
