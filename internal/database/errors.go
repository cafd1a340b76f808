package database

import (
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

// PostgreSQL error codes (https://www.postgresql.org/docs/current/errcodes-appendix.html).
const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgUndefinedColumn      = "42703"
)

// MySQL error numbers.
const (
	myDuplicateEntry  = 1062
	myLockWaitTimeout = 1205
	myDeadlock        = 1213
	myUnknownColumn   = 1054
)

// IsUniqueViolation reports whether err is a duplicate-key error from either driver.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pgUniqueViolation
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == myDuplicateEntry
	}
	return false
}

// IsBusy reports whether err is transient lock contention (serialization
// failure, deadlock, lock wait timeout) that is safe to retry.
func IsBusy(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		code := string(pqErr.Code)
		return code == pgSerializationFailure || code == pgDeadlockDetected
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == myLockWaitTimeout || myErr.Number == myDeadlock
	}
	return false
}

// IsUndefinedColumn reports whether err means the queried relation is missing
// a column. Used to detect a read replica whose schema lags the primary.
func IsUndefinedColumn(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pgUndefinedColumn
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == myUnknownColumn
	}
	return false
}
