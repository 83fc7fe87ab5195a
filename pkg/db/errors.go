package db

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const (
	pgUniqueViolation  = "23505"
	pgLockNotAvailable = "55P03"
	pgSerialization    = "40001"
	pgDeadlockDetected = "40P01"
)

// IsUniqueViolation reports whether err is a Postgres unique constraint
// violation, for either driver the module may be running under.
func IsUniqueViolation(err error) bool {
	return hasPGCode(err, pgUniqueViolation)
}

// IsLockConflict reports whether err stems from row-lock contention: a
// NOWAIT lock failure, a serialization failure, or a deadlock. Callers
// treat these as retryable write conflicts.
func IsLockConflict(err error) bool {
	return hasPGCode(err, pgLockNotAvailable) ||
		hasPGCode(err, pgSerialization) ||
		hasPGCode(err, pgDeadlockDetected)
}

func hasPGCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgxErr.Code == code
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == code
	}
	return false
}
