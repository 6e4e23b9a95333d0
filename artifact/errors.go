package artifact

import "errors"

var (
	// ErrNotFound is returned when no regular file with the given name exists
	// in the store.
	ErrNotFound = errors.New("artifact not found")

	// ErrInvalidName is returned for names that are empty, relative
	// references, or contain path separators.
	ErrInvalidName = errors.New("invalid artifact name")
)
