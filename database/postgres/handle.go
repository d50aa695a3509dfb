// Package postgres adapts jackc/pgx/v5 connections, pools and transactions
// to database.Handle.
//
// Usage:
//
//	pool, err := postgres.Open(ctx, database.DefaultConfig(dsn))
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	row, _, err := database.Get(ctx, pool, "kv", "key", "name")
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/koustreak/rowx/database"
)

// Querier is the part of pgx the handle needs. *pgxpool.Pool,
// *pgxpool.Conn, *pgx.Conn, pgx.Tx and pgxmock pools all satisfy it.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

var (
	_ Querier = (*pgxpool.Pool)(nil)
	_ Querier = (*pgxpool.Conn)(nil)
	_ Querier = (*pgx.Conn)(nil)
	_ Querier = (pgx.Tx)(nil)

	_ database.Handle = (*Handle)(nil)
)

// Handle runs descriptors through a pgx Querier. It is as safe for
// concurrent use as the Querier it wraps: a pool serves concurrent calls, a
// single connection or transaction does not.
type Handle struct {
	q Querier
}

// New wraps q. A nil q yields a nil *Handle, which the helpers reject as an
// invalid handle.
func New(q Querier) *Handle {
	if q == nil {
		return nil
	}
	return &Handle{q: q}
}

// Dialect reports $n placeholders.
func (h *Handle) Dialect() database.Dialect { return database.DialectPostgres }

// Execute runs d and collects every row. Errors from pgx, whether raised by
// Query itself or surfaced while reading rows, are returned unchanged.
func (h *Handle) Execute(ctx context.Context, d database.Descriptor) (*database.Result, error) {
	rows, err := h.q.Query(ctx, d.Text, d.Args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	descs := rows.FieldDescriptions()
	cols := make([]string, len(descs))
	for i, fd := range descs {
		cols[i] = fd.Name
	}

	out := make([]database.Row, 0)
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make(database.Row, len(cols))
		for i, col := range cols {
			row[i] = database.Field{Column: col, Value: vals[i]}
		}
		out = append(out, row)
	}

	// The command tag is only final once the rows are closed.
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	tag := rows.CommandTag()
	return &database.Result{
		Rows: out,
		Meta: database.Metadata{
			Command:      tag.String(),
			RowsAffected: tag.RowsAffected(),
			Columns:      cols,
		},
	}, nil
}
