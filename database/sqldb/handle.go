// Package sqldb adapts database/sql handles (*sql.DB, *sql.Conn, *sql.Tx)
// to database.Handle. The mysql and sqlite packages open their pools
// through it.
package sqldb

import (
	"context"
	"database/sql"
	"regexp"
	"strings"

	"github.com/koustreak/rowx/database"
)

// Querier is the part of database/sql the handle needs.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

var (
	_ Querier = (*sql.DB)(nil)
	_ Querier = (*sql.Conn)(nil)
	_ Querier = (*sql.Tx)(nil)

	_ database.Handle = (*Handle)(nil)
)

// Normalizer rewrites a scanned value using its column type, for drivers
// that return text columns as []byte.
type Normalizer func(col *sql.ColumnType, v any) any

// Option configures a Handle.
type Option func(*Handle)

// WithNormalizer applies n to every scanned value.
func WithNormalizer(n Normalizer) Option {
	return func(h *Handle) { h.normalize = n }
}

// Handle runs descriptors through a database/sql Querier.
type Handle struct {
	q         Querier
	dialect   database.Dialect
	normalize Normalizer
}

// New wraps q. dialect must match the driver behind q. A nil q yields a nil
// *Handle, which the helpers reject as an invalid handle.
func New(q Querier, dialect database.Dialect, opts ...Option) *Handle {
	if q == nil {
		return nil
	}
	h := &Handle{q: q, dialect: dialect}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Dialect returns the dialect given to New.
func (h *Handle) Dialect() database.Dialect { return h.dialect }

// Execute runs d. Statements that produce rows go through QueryContext and
// report the row count as RowsAffected; the rest go through ExecContext.
// A statement produces rows when its first keyword, after leading comments,
// is one of rowVerbs, or when it has a RETURNING clause outside quotes and
// comments. Driver errors are returned unchanged.
func (h *Handle) Execute(ctx context.Context, d database.Descriptor) (*database.Result, error) {
	if returnsRows(d.Text) {
		return h.query(ctx, d)
	}
	return h.exec(ctx, d)
}

func (h *Handle) query(ctx context.Context, d database.Descriptor) (*database.Result, error) {
	rows, err := h.q.QueryContext(ctx, d.Text, d.Args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var types []*sql.ColumnType
	if h.normalize != nil {
		if types, err = rows.ColumnTypes(); err != nil {
			return nil, err
		}
	}

	out, cols, err := database.ScanRows(rows)
	if err != nil {
		return nil, err
	}

	if types != nil {
		for _, row := range out {
			for i := range row {
				row[i].Value = h.normalize(types[i], row[i].Value)
			}
		}
	}

	return &database.Result{
		Rows: out,
		Meta: database.Metadata{
			Command:      verb(d.Text),
			RowsAffected: int64(len(out)),
			Columns:      cols,
		},
	}, nil
}

func (h *Handle) exec(ctx context.Context, d database.Descriptor) (*database.Result, error) {
	res, err := h.q.ExecContext(ctx, d.Text, d.Args...)
	if err != nil {
		return nil, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		n = -1
	}

	return &database.Result{
		Rows: []database.Row{},
		Meta: database.Metadata{Command: verb(d.Text), RowsAffected: n},
	}, nil
}

var returningClause = regexp.MustCompile(`(?i)\bRETURNING\b`)

// rowVerbs start statements that produce a result set.
var rowVerbs = map[string]bool{
	"SELECT":   true,
	"WITH":     true,
	"VALUES":   true,
	"SHOW":     true,
	"EXPLAIN":  true,
	"PRAGMA":   true,
	"DESCRIBE": true,
	"DESC":     true,
	"TABLE":    true,
}

func returnsRows(text string) bool {
	return rowVerbs[verb(text)] || returningClause.MatchString(blankLiterals(text))
}

// verb returns the upper-cased first keyword of text, after any leading
// comments and opening parentheses.
func verb(text string) string {
	text = skipNoise(text)
	end := strings.IndexFunc(text, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\r' || r == '\n' || r == '(' || r == ';'
	})
	if end >= 0 {
		text = text[:end]
	}
	return strings.ToUpper(text)
}

// skipNoise drops leading whitespace, opening parentheses, "--" and "#"
// line comments and "/* */" block comments.
func skipNoise(text string) string {
	for {
		text = strings.TrimLeft(text, " \t\r\n(")
		switch {
		case strings.HasPrefix(text, "--"), strings.HasPrefix(text, "#"):
			i := strings.IndexByte(text, '\n')
			if i < 0 {
				return ""
			}
			text = text[i+1:]
		case strings.HasPrefix(text, "/*"):
			i := strings.Index(text[2:], "*/")
			if i < 0 {
				return ""
			}
			text = text[i+4:]
		default:
			return text
		}
	}
}

// blankLiterals replaces quoted strings, quoted identifiers and comments
// with spaces so keyword checks only see statement text. A backslash
// escapes the next character inside quotes, as MySQL reads it.
func blankLiterals(text string) string {
	b := []byte(text)
	blank := func(from, to int) {
		for k := from; k < to && k < len(b); k++ {
			if b[k] != '\n' {
				b[k] = ' '
			}
		}
	}

	for i := 0; i < len(b); i++ {
		switch c := b[i]; {
		case c == '\'' || c == '"' || c == '`':
			j := i + 1
			for j < len(b) && b[j] != c {
				if b[j] == '\\' && c != '`' {
					j++
				}
				j++
			}
			blank(i+1, j)
			i = j
		case c == '-' && i+1 < len(b) && b[i+1] == '-', c == '#':
			j := i
			for j < len(b) && b[j] != '\n' {
				j++
			}
			blank(i, j)
			i = j
		case c == '/' && i+1 < len(b) && b[i+1] == '*':
			end := strings.Index(string(b[i+2:]), "*/")
			j := len(b)
			if end >= 0 {
				j = i + 2 + end + 2
			}
			blank(i, j)
			i = j - 1
		}
	}
	return string(b)
}
