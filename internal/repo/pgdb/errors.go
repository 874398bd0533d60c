package pgdb

import (
	"errors"

	"job-marketplace-api/internal/repo/repo_errors"

	"github.com/lib/pq"
)

const (
	pqLockNotAvailable = "55P03"
	pqUniqueViolation  = "23505"
)

// classifyPgError maps driver-level failure codes onto repo sentinel errors so
// the service layer never sees lib/pq types.
func classifyPgError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pqLockNotAvailable:
			return repo_errors.ErrLockNotAvailable
		case pqUniqueViolation:
			return repo_errors.ErrUniqueViolation
		}
	}

	return err
}
