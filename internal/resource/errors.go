package resource

import (
	"errors"
	"fmt"
)

// Sentinel errors for resource operations.
var (
	// ErrNotFound indicates the resource does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrUnsupportedScheme indicates no resolver handles the URI scheme.
	ErrUnsupportedScheme = errors.New("unsupported uri scheme")

	// ErrIsDirectory indicates the URI names a directory.
	ErrIsDirectory = errors.New("resource is a directory")

	// ErrBinary indicates the resource does not hold text.
	ErrBinary = errors.New("resource is binary")

	// ErrTooLarge indicates the resource exceeds the configured size limit.
	ErrTooLarge = errors.New("resource too large")

	// ErrClosed indicates the resource has been released.
	ErrClosed = errors.New("resource closed")
)

// Error describes a failed operation on a resource.
type Error struct {
	Op  string
	URI string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.URI, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WriteError reports an I/O failure while saving a resource.
type WriteError struct {
	URI string
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.URI, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// IsNotFound returns true if err indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
