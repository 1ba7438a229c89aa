package interop

import (
	"errors"
	"fmt"
)

var (
	// ErrNotBound is returned when an operation needs a complete Table and
	// at least one primitive is missing.
	ErrNotBound = errors.New("interop table is not bound to an assembly")

	// ErrInvalidHandle is returned for operations attempted on a sentinel handle.
	ErrInvalidHandle = errors.New("invalid handle")
)

// LoadError reports an assembly that could not be loaded.
type LoadError struct {
	Path   string
	Status AssemblyLoadStatus
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load assembly %s: %s", e.Path, e.Status)
}
