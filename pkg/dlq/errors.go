package dlq

import "errors"

// Common errors
var (
	// ErrStoreNil is returned when a nil store is provided
	ErrStoreNil = errors.New("dlq store cannot be nil")

	// ErrJobRepositoryNil is returned when a nil job repository is provided
	ErrJobRepositoryNil = errors.New("job repository cannot be nil")

	// ErrEntryNotFound is returned when a dead-letter entry id does not exist
	ErrEntryNotFound = errors.New("dead-letter entry not found")

	// ErrEntryClosed is returned when operating on a resolved or abandoned entry
	ErrEntryClosed = errors.New("dead-letter entry is already resolved or abandoned")

	// ErrInvalidCloseStatus is returned when closing an entry with a status
	// other than resolved or abandoned
	ErrInvalidCloseStatus = errors.New("entries can only be closed as resolved or abandoned")
)
