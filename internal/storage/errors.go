package storage

import "errors"

var (
	// ErrObjectNotFound is returned when the key does not exist in the backend
	ErrObjectNotFound = errors.New("storage: object not found")

	// ErrOutsideRoot is returned when a key resolves outside the local storage root
	ErrOutsideRoot = errors.New("storage: key resolves outside storage root")
)
