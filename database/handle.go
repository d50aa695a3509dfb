package database

import (
	"context"
	"fmt"
)

// Dialect controls which SQL placeholder style the generated statements use.
type Dialect int

const (
	// DialectPostgres uses $1, $2, … placeholders.
	DialectPostgres Dialect = iota

	// DialectMySQL uses ? placeholders.
	DialectMySQL

	// DialectSQLite uses ?1, ?2, … placeholders.
	DialectSQLite
)

func (d Dialect) String() string {
	switch d {
	case DialectPostgres:
		return "postgres"
	case DialectMySQL:
		return "mysql"
	case DialectSQLite:
		return "sqlite"
	default:
		return "unknown"
	}
}

// Placeholder returns the bind marker for the 1-based parameter idx.
// Postgres: $1, $2, …   MySQL: ? (index is ignored)   SQLite: ?1, ?2, …
func (d Dialect) Placeholder(idx int) string {
	switch d {
	case DialectMySQL:
		return "?"
	case DialectSQLite:
		return fmt.Sprintf("?%d", idx)
	default:
		return fmt.Sprintf("$%d", idx)
	}
}

// Descriptor is a command plus its ordered bind parameters.
type Descriptor struct {
	Text string
	Args []any
}

// Command builds a Descriptor. A command with no args is sent as-is.
func Command(text string, args ...any) Descriptor {
	return Descriptor{Text: text, Args: args}
}

func (d Descriptor) String() string { return d.Text }

// Metadata is what the handle reports alongside the rows.
type Metadata struct {
	// Command is the statement verb (or the full command tag when the
	// driver provides one, e.g. "DELETE 1").
	Command string `json:"command"`

	// RowsAffected is the affected-row count for writes and the returned
	// row count for reads. -1 when the driver cannot tell.
	RowsAffected int64 `json:"rowsAffected"`

	// Columns lists the result columns in order. Empty for writes.
	Columns []string `json:"columns,omitempty"`
}

// Result is the outcome of executing one Descriptor.
type Result struct {
	Rows []Row    `json:"rows"`
	Meta Metadata `json:"meta"`
}

// Handle is the caller-supplied connection, pool, or transaction the
// helpers run against. rowx never opens or closes a Handle.
//
// Implementations must return the native driver error unchanged and a
// non-nil (possibly empty) Rows slice on success.
type Handle interface {
	Execute(ctx context.Context, d Descriptor) (*Result, error)
	Dialect() Dialect
}
