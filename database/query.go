package database

import (
	"strings"

	"github.com/koustreak/rowx/internal/errs"
)

// The builders below interpolate table and column names verbatim: they are
// never quoted, escaped, or validated, so callers must only pass trusted
// identifiers. Values are always bound, never interpolated.

// SelectWhere builds SELECT * FROM <table> WHERE <column> = <p1>.
func SelectWhere(d Dialect, table, column string, value any) Descriptor {
	var sb strings.Builder
	sb.WriteString("SELECT * FROM ")
	sb.WriteString(table)
	sb.WriteString(" WHERE ")
	sb.WriteString(column)
	sb.WriteString(" = ")
	sb.WriteString(d.Placeholder(1))
	return Descriptor{Text: sb.String(), Args: []any{value}}
}

// InsertInto builds INSERT INTO <table>(<c1>, <c2>, …) VALUES(<p1>, <p2>, …)
// with the record's values bound in record order.
func InsertInto(d Dialect, table string, rec Record) (Descriptor, error) {
	if len(rec) == 0 {
		return Descriptor{}, errs.New(errs.ErrKindInvalidInput, "insert into "+table+": record has no fields")
	}

	cols := make([]string, len(rec))
	marks := make([]string, len(rec))
	args := make([]any, len(rec))
	for i, f := range rec {
		cols[i] = f.Column
		marks[i] = d.Placeholder(i + 1)
		args[i] = f.Value
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(table)
	sb.WriteString("(")
	sb.WriteString(strings.Join(cols, ", "))
	sb.WriteString(") VALUES(")
	sb.WriteString(strings.Join(marks, ", "))
	sb.WriteString(")")
	return Descriptor{Text: sb.String(), Args: args}, nil
}

// UpdateWhere builds UPDATE <table> SET c1 = p1, c2 = p2, … WHERE <column> = pN
// where N is len(rec)+1. Args are the record values followed by value.
// Every row matching the predicate is updated.
func UpdateWhere(d Dialect, table, column string, value any, rec Record) (Descriptor, error) {
	if len(rec) == 0 {
		return Descriptor{}, errs.New(errs.ErrKindInvalidInput, "update "+table+": record has no fields")
	}

	sets := make([]string, len(rec))
	args := make([]any, 0, len(rec)+1)
	for i, f := range rec {
		sets[i] = f.Column + " = " + d.Placeholder(i+1)
		args = append(args, f.Value)
	}
	args = append(args, value)

	var sb strings.Builder
	sb.WriteString("UPDATE ")
	sb.WriteString(table)
	sb.WriteString(" SET ")
	sb.WriteString(strings.Join(sets, ", "))
	sb.WriteString(" WHERE ")
	sb.WriteString(column)
	sb.WriteString(" = ")
	sb.WriteString(d.Placeholder(len(rec) + 1))
	return Descriptor{Text: sb.String(), Args: args}, nil
}

// DeleteWhere builds DELETE FROM <table> WHERE <column> = <p1>.
// Every row matching the predicate is deleted.
func DeleteWhere(d Dialect, table, column string, value any) Descriptor {
	var sb strings.Builder
	sb.WriteString("DELETE FROM ")
	sb.WriteString(table)
	sb.WriteString(" WHERE ")
	sb.WriteString(column)
	sb.WriteString(" = ")
	sb.WriteString(d.Placeholder(1))
	return Descriptor{Text: sb.String(), Args: []any{value}}
}
