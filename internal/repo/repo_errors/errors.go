package repo_errors

import "errors"

var (
	ErrNotFound = errors.New("entity not found")

	// ErrLockNotAvailable means a scoped row lock (FOR UPDATE NOWAIT) was held
	// by a concurrent transaction.
	ErrLockNotAvailable = errors.New("row lock not available")

	// ErrStaleStatus means a status-conditional write matched zero rows: the
	// entity moved to another status since it was read.
	ErrStaleStatus = errors.New("entity status changed concurrently")

	ErrUniqueViolation = errors.New("unique constraint violated")
)
