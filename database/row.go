package database

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Field is one column/value pair.
type Field struct {
	Column string
	Value  any
}

// Row is one result record. Field order is the column order of the
// result set.
type Row []Field

// Record is the ordered column/value input of Ins and Upd. The generated
// column list and the bind values are both read from the same slice, so
// they always line up.
type Record = Row

// R builds a Row from alternating column/value pairs:
//
//	database.R("key", "name", "val", "Vic")
//
// It panics on an odd number of arguments or a non-string column, since
// both are programming mistakes visible at the call site.
func R(pairs ...any) Row {
	if len(pairs)%2 != 0 {
		panic("database.R: odd number of arguments")
	}
	row := make(Row, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		col, ok := pairs[i].(string)
		if !ok {
			panic(fmt.Sprintf("database.R: column at position %d is %T, not string", i, pairs[i]))
		}
		row = append(row, Field{Column: col, Value: pairs[i+1]})
	}
	return row
}

// Get returns the value of the first field named col.
func (r Row) Get(col string) (any, bool) {
	for _, f := range r {
		if f.Column == col {
			return f.Value, true
		}
	}
	return nil, false
}

// Value is Get without the presence flag; a missing column reads as nil.
func (r Row) Value(col string) any {
	v, _ := r.Get(col)
	return v
}

// Columns returns the column names in order.
func (r Row) Columns() []string {
	cols := make([]string, len(r))
	for i, f := range r {
		cols[i] = f.Column
	}
	return cols
}

// Values returns the values in column order.
func (r Row) Values() []any {
	vals := make([]any, len(r))
	for i, f := range r {
		vals[i] = f.Value
	}
	return vals
}

// Map returns the row as a plain map. Column order is lost.
func (r Row) Map() map[string]any {
	m := make(map[string]any, len(r))
	for _, f := range r {
		m[f.Column] = f.Value
	}
	return m
}

// String renders the row as {col: val, ...} in column order.
func (r Row) String() string {
	parts := make([]string, len(r))
	for i, f := range r {
		parts[i] = fmt.Sprintf("%s: %v", f.Column, f.Value)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// MarshalJSON encodes the row as a JSON object whose keys keep column order.
func (r Row) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Column)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", f.Column, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object into a Row, keeping key order.
// Integral numbers become int64, other numbers float64.
func (r *Row) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*r = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("database: row must be a JSON object, got %v", tok)
	}

	row := Row{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)

		var v any
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("column %q: %w", key, err)
		}
		row = append(row, Field{Column: key, Value: FromJSONNumber(v)})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*r = row
	return nil
}

// FromJSONNumber converts a json.Number produced by a UseNumber decoder into
// int64 when integral, float64 otherwise. Other values are returned as-is.
func FromJSONNumber(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}

// Rows is the iterator ScanRows consumes. *sql.Rows satisfies it.
type Rows interface {
	Columns() ([]string, error)
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// ScanRows reads every remaining row into ordered Rows. Each value is the
// Go-native representation the driver produced.
//
// The returned slice is always non-nil (empty slice on zero rows). Errors
// from the iterator are returned unchanged. ScanRows does not close rows.
func ScanRows(rows Rows) ([]Row, []string, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	result := make([]Row, 0)

	for rows.Next() {
		// Allocate scan targets as *any so the driver can write any type.
		dest := make([]any, len(columns))
		destPtrs := make([]any, len(columns))
		for i := range dest {
			destPtrs[i] = &dest[i]
		}

		if err := rows.Scan(destPtrs...); err != nil {
			return nil, nil, err
		}

		row := make(Row, len(columns))
		for i, col := range columns {
			row[i] = Field{Column: col, Value: dest[i]}
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	return result, columns, nil
}
