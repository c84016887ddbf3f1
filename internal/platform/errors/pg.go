package errors

import (
	"context"
	stderrs "errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes the row store cares about
const (
	pgUniqueViolation      = "23505"
	pgForeignKeyViolation  = "23503"
	pgNotNullViolation     = "23502"
	pgCheckViolation       = "23514"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
	pgReadOnlyTransaction  = "25006"
	pgCannotConnectNow     = "57P03"
	pgAdminShutdown        = "57P01"
)

// PgError returns the Postgres error at the root of err, if any
func PgError(err error) (*pgconn.PgError, bool) {
	var pg *pgconn.PgError
	if stderrs.As(err, &pg) {
		return pg, true
	}
	return nil, false
}

// IsSQLState reports whether err is a Postgres error with the given SQLSTATE
func IsSQLState(err error, state string) bool {
	pg, ok := PgError(err)
	return ok && pg.Code == state
}

// IsDuplicateKey reports a unique violation
func IsDuplicateKey(err error) bool { return IsSQLState(err, pgUniqueViolation) }

// IsForeignKeyViolation reports a foreign key violation
func IsForeignKeyViolation(err error) bool { return IsSQLState(err, pgForeignKeyViolation) }

// DBErrorCode classifies a Postgres error; ok is false for non-Postgres errors
func DBErrorCode(err error) (ErrorCode, bool) {
	pg, ok := PgError(err)
	if !ok {
		return ErrorCodeUnknown, false
	}
	switch pg.Code {
	case pgUniqueViolation:
		return ErrorCodeDuplicateKey, true
	case pgForeignKeyViolation, pgNotNullViolation, pgCheckViolation:
		return ErrorCodeValidation, true
	case pgReadOnlyTransaction, pgCannotConnectNow, pgAdminShutdown:
		return ErrorCodeUnavailable, true
	}
	return ErrorCodeDB, true
}

// FromPostgres wraps err with the mapped code. Anything unrecognised is a DB error,
// so row store failures surface as 500 unless they are clearly the caller's fault
func FromPostgres(err error, msg string) error {
	if err == nil {
		return nil
	}
	if code, ok := DBErrorCode(err); ok {
		return AttachFieldFromPg(Wrap(err, code, msg))
	}
	return Wrap(err, ErrorCodeDB, msg)
}

// AttachFieldFromPg tags err with the column behind the violation, when Postgres reports one
func AttachFieldFromPg(err error) error {
	pg, ok := PgError(err)
	if !ok {
		return err
	}
	if col := strings.TrimSpace(pg.ColumnName); col != "" {
		return WithField(err, col)
	}
	return err
}

// IsRetryable reports transient row store conditions
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if stderrs.Is(err, context.DeadlineExceeded) {
		return true
	}
	pg, ok := PgError(err)
	if !ok {
		return false
	}
	switch pg.Code {
	case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable, pgCannotConnectNow, pgAdminShutdown:
		return true
	}
	return false
}
