package binding

import (
	"errors"
	"fmt"
)

// ErrDisposed is returned by operations on a disposed binding.
var ErrDisposed = errors.New("binding disposed")

// ResolutionError reports a URI that could not be resolved to a resource.
type ResolutionError struct {
	URI string
	Err error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve %s: %v", e.URI, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// SurfaceInitError reports a surface that failed to build.
type SurfaceInitError struct {
	ID  string
	Err error
}

func (e *SurfaceInitError) Error() string {
	return fmt.Sprintf("surface %s: %v", e.ID, e.Err)
}

func (e *SurfaceInitError) Unwrap() error {
	return e.Err
}
