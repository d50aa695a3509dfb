package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/koustreak/rowx/internal/errs"
	sqlitedrv "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Classify translates a modernc.org/sqlite error into an *errs.Error. The
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

	var sqliteErr *sqlitedrv.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		return errs.Wrap(classifyCode(code), fmt.Sprintf("sqlite %d", code), err)
	}

	return errs.Wrap(errs.ErrKindUnknown, "sqlite error", err)
}

// classifyCode maps a (possibly extended) result code to ErrKind.
func classifyCode(code int) errs.ErrKind {
	switch code & 0xff {
	case sqlite3.SQLITE_CONSTRAINT:
		return errs.ErrKindConflict
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return errs.ErrKindTimeout
	case sqlite3.SQLITE_CANTOPEN, sqlite3.SQLITE_NOTADB, sqlite3.SQLITE_IOERR:
		return errs.ErrKindConnectionFailed
	case sqlite3.SQLITE_AUTH, sqlite3.SQLITE_PERM, sqlite3.SQLITE_READONLY:
		return errs.ErrKindPermissionDenied
	default:
		return errs.ErrKindQueryFailed
	}
}
