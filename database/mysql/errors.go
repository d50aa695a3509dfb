package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/koustreak/rowx/internal/errs"
)

// MySQL error numbers
// Full list: https://dev.mysql.com/doc/mysql-errors/8.0/en/server-error-reference.html
const (
	errDBAccessDenied   = 1044
	errAccessDenied     = 1045
	errNoDBSelected     = 1046
	errUnknownDatabase  = 1049
	errTooManyConns     = 1040
	errUserTooManyConns = 1203
	errBadFieldError    = 1054
	errParseError       = 1064
	errNoSuchTable      = 1146
	errDuplicateEntry   = 1062
	errRowIsReferenced  = 1451
	errNoReferencedRow  = 1452
	errTableAccess      = 1142
	errLockWaitTimeout  = 1205
	errConnRefused      = 2003
)

// Classify translates a go-sql-driver/mysql error into an *errs.Error. The
// query helpers never call it; the original error stays reachable through
// errors.As.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, "query timed out", err)
	}

	if errors.Is(err, sql.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, "record not found", err)
	}

	var mysqlErr *gomysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return errs.Wrap(
			classifyMySQLCode(mysqlErr.Number),
			fmt.Sprintf("mysql %d: %s", mysqlErr.Number, mysqlErr.Message),
			err,
		)
	}

	return errs.Wrap(errs.ErrKindConnectionFailed, "connection failed", err)
}

// IsNoSuchTable reports whether err is MySQL error 1146.
func IsNoSuchTable(err error) bool {
	var mysqlErr *gomysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == errNoSuchTable
}

// classifyMySQLCode maps MySQL error numbers to ErrKind.
func classifyMySQLCode(code uint16) errs.ErrKind {
	switch code {
	case errDuplicateEntry, errRowIsReferenced, errNoReferencedRow:
		return errs.ErrKindConflict
	case errDBAccessDenied, errAccessDenied, errNoDBSelected, errUnknownDatabase, errConnRefused:
		return errs.ErrKindConnectionFailed
	case errTooManyConns, errUserTooManyConns:
		return errs.ErrKindConnectionFailed
	case errTableAccess:
		return errs.ErrKindPermissionDenied
	case errLockWaitTimeout:
		return errs.ErrKindTimeout
	case errBadFieldError, errParseError, errNoSuchTable:
		return errs.ErrKindQueryFailed
	default:
		return errs.ErrKindQueryFailed
	}
}
