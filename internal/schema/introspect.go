// Package schema lists the tables and columns visible through a
// database.Handle, so callers can discover what the row helpers can target.
//
// Postgres reads information_schema for current_schema(), MySQL for
// DATABASE(), and SQLite reads sqlite_master and pragma_table_info.
package schema

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/koustreak/rowx/database"
	"github.com/koustreak/rowx/internal/errs"
)

// Inspector runs catalog queries through the row helpers.
type Inspector struct {
	h database.Handle
	x *database.Helpers
}

// New returns an Inspector over h. A nil x uses database.Default().
func New(h database.Handle, x *database.Helpers) *Inspector {
	if x == nil {
		x = database.Default()
	}
	return &Inspector{h: h, x: x}
}

// ListTables returns all user tables, sorted by name.
func (i *Inspector) ListTables(ctx context.Context) ([]string, error) {
	rows, _, err := i.x.All(ctx, i.h, database.Command(listTablesQuery(i.h.Dialect())))
	if err != nil {
		return nil, err
	}

	tables := make([]string, 0, len(rows))
	for _, row := range rows {
		tables = append(tables, text(row.Value("table_name")))
	}
	return tables, nil
}

// TableExists checks whether a specific table exists
func (i *Inspector) TableExists(ctx context.Context, table string) (bool, error) {
	tables, err := i.ListTables(ctx)
	if err != nil {
		return false, err
	}
	for _, t := range tables {
		if t == table {
			return true, nil
		}
	}
	return false, nil
}

// InspectTable returns the columns of table in declaration order. A table
// with no visible columns is reported as not found.
func (i *Inspector) InspectTable(ctx context.Context, table string) (*TableInfo, error) {
	d := i.h.Dialect()
	rows, _, err := i.x.All(ctx, i.h, database.Command(columnsQuery(d), table))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errs.New(errs.ErrKindNotFound, fmt.Sprintf("table %s not found or has no columns", table))
	}

	info := &TableInfo{Name: table, Columns: make([]ColumnInfo, 0, len(rows))}
	for _, row := range rows {
		col := ColumnInfo{
			Name:         text(row.Value("column_name")),
			DataType:     text(row.Value("data_type")),
			IsNullable:   truthy(row.Value("is_nullable")),
			IsPrimaryKey: truthy(row.Value("is_primary_key")),
		}
		if v := row.Value("column_default"); v != nil {
			s := text(v)
			col.DefaultValue = &s
		}
		info.Columns = append(info.Columns, col)
	}
	return info, nil
}

// InspectAll describes every table returned by ListTables.
func (i *Inspector) InspectAll(ctx context.Context) ([]TableInfo, error) {
	tables, err := i.ListTables(ctx)
	if err != nil {
		return nil, err
	}

	infos := make([]TableInfo, 0, len(tables))
	for _, t := range tables {
		ti, err := i.InspectTable(ctx, t)
		if err != nil {
			return nil, err
		}
		infos = append(infos, *ti)
	}
	return infos, nil
}

func listTablesQuery(d database.Dialect) string {
	switch d {
	case database.DialectSQLite:
		return `
		SELECT name AS table_name
		FROM sqlite_master
		WHERE type = 'table'
		  AND name NOT LIKE 'sqlite_%'
		ORDER BY name`
	case database.DialectMySQL:
		return `
		SELECT table_name AS table_name
		FROM information_schema.tables
		WHERE table_schema = DATABASE()
		  AND table_type = 'BASE TABLE'
		ORDER BY table_name`
	default:
		return `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = current_schema()
		  AND table_type = 'BASE TABLE'
		ORDER BY table_name`
	}
}

// columnsQuery takes the table name as its only parameter.
func columnsQuery(d database.Dialect) string {
	switch d {
	case database.DialectSQLite:
		return `
		SELECT
			name                AS column_name,
			type                AS data_type,
			"notnull" = 0 AND pk = 0 AS is_nullable,
			dflt_value          AS column_default,
			pk > 0              AS is_primary_key
		FROM pragma_table_info(?1)
		ORDER BY cid`
	case database.DialectMySQL:
		return `
		SELECT
			column_name         AS column_name,
			data_type           AS data_type,
			is_nullable = 'YES' AS is_nullable,
			column_default      AS column_default,
			column_key = 'PRI'  AS is_primary_key
		FROM information_schema.columns
		WHERE table_schema = DATABASE() AND table_name = ?
		ORDER BY ordinal_position`
	default:
		return `
		SELECT
			c.column_name,
			c.data_type,
			c.is_nullable = 'YES'     AS is_nullable,
			c.column_default,
			COALESCE(pk.is_pk, false) AS is_primary_key
		FROM information_schema.columns c

		-- Primary key check
		LEFT JOIN (
			SELECT kcu.column_name, true AS is_pk
			FROM information_schema.table_constraints tc
			JOIN information_schema.key_column_usage kcu
				ON tc.constraint_name = kcu.constraint_name
				AND tc.table_schema = kcu.table_schema
			WHERE tc.constraint_type = 'PRIMARY KEY'
			  AND tc.table_schema = current_schema()
			  AND tc.table_name   = $1
		) pk ON pk.column_name = c.column_name

		WHERE c.table_schema = current_schema() AND c.table_name = $1
		ORDER BY c.ordinal_position`
	}
}

// text reads catalog strings, which some drivers return as bytes.
func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}

// truthy reads boolean catalog expressions: Postgres returns bool, MySQL
// and SQLite return 0 or 1.
func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case int64:
		return t != 0
	case int32:
		return t != 0
	case []byte:
		return truthy(string(t))
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		if err != nil {
			n, nerr := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
			return nerr == nil && n != 0
		}
		return b
	default:
		return false
	}
}
