package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an observation id does not exist.
	ErrNotFound = errors.New("observation not found")

	// ErrNotAHome is returned when a directory has no label file.
	ErrNotAHome = errors.New("directory is not a labbook home")

	// ErrHomeExists is returned when a label file is already present where a
	// new home was about to be created.
	ErrHomeExists = errors.New("labbook home already exists")

	// ErrLockTimeout is returned when an exclusive lock could not be acquired
	// in time.
	ErrLockTimeout = errors.New("timed out acquiring file lock")

	// ErrCorrupt is returned when persisted data cannot be turned back into
	// an observation.
	ErrCorrupt = errors.New("corrupt observation record")

	// ErrFlattenConflict is returned by Unflatten when a key is both a leaf
	// and a prefix of another key.
	ErrFlattenConflict = errors.New("conflicting flattened keys")
)

// ErrUnknownBackend indicates that no backend is registered under Name.
type ErrUnknownBackend struct {
	Name      string
	Available []string
}

func (e *ErrUnknownBackend) Error() string {
	return fmt.Sprintf("unknown backend type %q, available backends are %v", e.Name, e.Available)
}
