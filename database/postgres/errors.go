package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/koustreak/rowx/internal/errs"
)

// PostgreSQL SQLSTATE codes with a dedicated kind.
// Full list: https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	pgErrInsufficientPrivilege = "42501"
	pgErrQueryCanceled         = "57014"
	pgErrUndefinedTable        = "42P01"
)

// Classify translates a pgx / pgconn error into an *errs.Error. The query
// helpers never call it; it is for callers that want a driver-independent
// kind (for example to pick an HTTP status). The original error stays
// reachable through errors.As.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	// Context cancellation / deadline exceeded
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, "query timed out", err)
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, "record not found", err)
	}

	// Postgres server-side error (SQLSTATE codes)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return errs.Wrap(classifySQLState(pgErr.Code), fmt.Sprintf("postgres %s", pgErr.Code), err)
	}

	// Fallthrough: connection-level errors (TLS, network, auth)
	return errs.Wrap(errs.ErrKindConnectionFailed, "connection failed", err)
}

// IsUndefinedTable reports whether err is SQLSTATE 42P01.
func IsUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgErrUndefinedTable
}

func classifySQLState(code string) errs.ErrKind {
	switch code {
	case pgErrInsufficientPrivilege:
		return errs.ErrKindPermissionDenied
	case pgErrQueryCanceled:
		return errs.ErrKindTimeout
	}
	if len(code) < 2 {
		return errs.ErrKindUnknown
	}
	switch code[:2] {
	case "08": // connection exception
		return errs.ErrKindConnectionFailed
	case "28": // invalid authorization specification
		return errs.ErrKindPermissionDenied
	case "23": // integrity constraint violation
		return errs.ErrKindConflict
	case "22", "42": // data exception, syntax error or access rule violation
		return errs.ErrKindQueryFailed
	default:
		return errs.ErrKindQueryFailed
	}
}
