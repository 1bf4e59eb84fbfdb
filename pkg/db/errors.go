package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const (
	sqlStateLockNotAvailable     = "55P03"
	sqlStateDeadlockDetected     = "40P01"
	sqlStateSerializationFailure = "40001"
	sqlStateUniqueViolation      = "23505"
)

// IsUniqueViolation reports whether err is a unique violation, optionally on the
// named constraint. Driver errors are matched by SQLSTATE and constraint name; other
// errors (sqlite in tests, wrapped strings) fall back to the message text.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	if code, constraint := pgDetails(err); code != "" {
		return code == sqlStateUniqueViolation && (constraintName == "" || constraint == constraintName)
	}
	msg := err.Error()
	if constraintName != "" {
		return strings.Contains(msg, constraintName)
	}
	return strings.Contains(msg, "duplicate key value") || strings.Contains(msg, "UNIQUE constraint failed")
}

// IsLockTimeout reports whether err is a lock wait that hit lock_timeout.
func IsLockTimeout(err error) bool {
	return sqlState(err) == sqlStateLockNotAvailable
}

// IsRetryable reports whether err is a transient lock conflict the caller may retry.
func IsRetryable(err error) bool {
	switch sqlState(err) {
	case sqlStateLockNotAvailable, sqlStateDeadlockDetected, sqlStateSerializationFailure:
		return true
	default:
		return false
	}
}

func sqlState(err error) string {
	code, _ := pgDetails(err)
	return code
}

func pgDetails(err error) (code, constraint string) {
	if err == nil {
		return "", ""
	}
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgxErr.Code, pgxErr.ConstraintName
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), pqErr.Constraint
	}
	return "", ""
}
