// Package database provides row-shaped query helpers over a caller-supplied
// Handle: single-row and multi-row fetches, and insert/update/delete by a
// column predicate.
//
// Every helper takes the handle right after the context, executes exactly
// one statement through it, and reshapes the result. Errors reported by the
// handle are returned unchanged. Each helper has a blocking form and an
// Async form that returns a Future:
//
//	row, _, err := database.Get(ctx, h, "kv", "key", "name")
//
//	fut, err := database.GetAsync(ctx, h, "kv", "key", "name")
//	if err != nil {
//	    return err // nil handle: reported before any I/O
//	}
//	fut.Then(func(s database.Single, err error) { ... })
package database

import (
	"context"
	"os"
	"reflect"
	"sync"

	"github.com/koustreak/rowx/internal/errs"
	"github.com/koustreak/rowx/internal/logger"
)

// Diagnostics receives non-fatal warnings, such as One seeing more than
// one row. *logger.Logger satisfies it.
type Diagnostics interface {
	WarnWith(msg string, fields map[string]interface{})
}

type nopDiagnostics struct{}

func (nopDiagnostics) WarnWith(string, map[string]interface{}) {}

// NopDiagnostics discards every warning.
var NopDiagnostics Diagnostics = nopDiagnostics{}

// Option configures Helpers.
type Option func(*Helpers)

// WithDiagnostics routes warnings to d. A nil d discards them.
func WithDiagnostics(d Diagnostics) Option {
	return func(x *Helpers) {
		if d == nil {
			d = NopDiagnostics
		}
		x.diag = d
	}
}

// Helpers runs the query helpers with a fixed set of options. It holds no
// per-call state and is safe for concurrent use. The zero value reports
// warnings the way Default does.
type Helpers struct {
	diag Diagnostics
}

// New returns Helpers configured by opts. Without WithDiagnostics, warnings
// go to stderr through a console logger.
func New(opts ...Option) *Helpers {
	x := &Helpers{}
	for _, opt := range opts {
		opt(x)
	}
	if x.diag == nil {
		x.diag = logger.New(&logger.Config{Level: "warn", Format: "console", Output: os.Stderr})
	}
	return x
}

var std = sync.OnceValue(func() *Helpers { return New() })

// Default returns the Helpers used by the package-level functions.
func Default() *Helpers { return std() }

func (x *Helpers) diagnostics() Diagnostics {
	if x == nil || x.diag == nil {
		return std().diag
	}
	return x.diag
}

// Query executes d verbatim and returns every row plus the metadata.
func (x *Helpers) Query(ctx context.Context, h Handle, d Descriptor) (*Result, error) {
	if err := checkHandle("database.Query", h); err != nil {
		return nil, err
	}
	return x.query(ctx, h, d)
}

// One executes d and returns its first row, or nil when nothing matched.
// More than one row is reported through Diagnostics and is not an error.
func (x *Helpers) One(ctx context.Context, h Handle, d Descriptor) (Row, Metadata, error) {
	if err := checkHandle("database.One", h); err != nil {
		return nil, Metadata{}, err
	}
	return x.one(ctx, "one", h, d)
}

// All executes d and returns every row. The slice is empty, never nil,
// when nothing matched.
func (x *Helpers) All(ctx context.Context, h Handle, d Descriptor) ([]Row, Metadata, error) {
	if err := checkHandle("database.All", h); err != nil {
		return nil, Metadata{}, err
	}
	return x.all(ctx, h, d)
}

// Get returns the row of table whose column equals value, or nil.
func (x *Helpers) Get(ctx context.Context, h Handle, table, column string, value any) (Row, Metadata, error) {
	if err := checkHandle("database.Get", h); err != nil {
		return nil, Metadata{}, err
	}
	return x.one(ctx, "get", h, SelectWhere(h.Dialect(), table, column, value))
}

// Sel returns every row of table whose column equals value.
func (x *Helpers) Sel(ctx context.Context, h Handle, table, column string, value any) ([]Row, Metadata, error) {
	if err := checkHandle("database.Sel", h); err != nil {
		return nil, Metadata{}, err
	}
	return x.all(ctx, h, SelectWhere(h.Dialect(), table, column, value))
}

// Ins inserts rec into table. Success is the absence of an error.
func (x *Helpers) Ins(ctx context.Context, h Handle, table string, rec Record) (Metadata, error) {
	if err := checkHandle("database.Ins", h); err != nil {
		return Metadata{}, err
	}
	d, err := InsertInto(h.Dialect(), table, rec)
	if err != nil {
		return Metadata{}, err
	}
	return x.exec(ctx, h, d)
}

// Upd sets the fields of rec on every row of table whose column equals value.
func (x *Helpers) Upd(ctx context.Context, h Handle, table, column string, value any, rec Record) (Metadata, error) {
	if err := checkHandle("database.Upd", h); err != nil {
		return Metadata{}, err
	}
	d, err := UpdateWhere(h.Dialect(), table, column, value, rec)
	if err != nil {
		return Metadata{}, err
	}
	return x.exec(ctx, h, d)
}

// Del deletes every row of table whose column equals value.
func (x *Helpers) Del(ctx context.Context, h Handle, table, column string, value any) (Metadata, error) {
	if err := checkHandle("database.Del", h); err != nil {
		return Metadata{}, err
	}
	return x.exec(ctx, h, DeleteWhere(h.Dialect(), table, column, value))
}

func (x *Helpers) query(ctx context.Context, h Handle, d Descriptor) (*Result, error) {
	res, err := h.Execute(ctx, d)
	if err != nil {
		return nil, err
	}
	if res == nil {
		res = &Result{}
	}
	if res.Rows == nil {
		res.Rows = []Row{}
	}
	return res, nil
}

func (x *Helpers) one(ctx context.Context, op string, h Handle, d Descriptor) (Row, Metadata, error) {
	res, err := x.query(ctx, h, d)
	if err != nil {
		return nil, Metadata{}, err
	}
	if len(res.Rows) == 0 {
		return nil, res.Meta, nil
	}
	if n := len(res.Rows); n > 1 {
		x.diagnostics().WarnWith("query returned more than one row but expected only one", map[string]interface{}{
			"op":    op,
			"query": d.Text,
			"rows":  n,
		})
	}
	return res.Rows[0], res.Meta, nil
}

func (x *Helpers) all(ctx context.Context, h Handle, d Descriptor) ([]Row, Metadata, error) {
	res, err := x.query(ctx, h, d)
	if err != nil {
		return nil, Metadata{}, err
	}
	return res.Rows, res.Meta, nil
}

func (x *Helpers) exec(ctx context.Context, h Handle, d Descriptor) (Metadata, error) {
	res, err := x.query(ctx, h, d)
	if err != nil {
		return Metadata{}, err
	}
	return res.Meta, nil
}

// checkHandle rejects a nil handle, including a typed nil pointer stored
// in the interface.
func checkHandle(op string, h Handle) error {
	if h == nil {
		return invalidHandle(op)
	}
	v := reflect.ValueOf(h)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		if v.IsNil() {
			return invalidHandle(op)
		}
	}
	return nil
}

func invalidHandle(op string) error {
	return errs.New(errs.ErrKindInvalidHandle, op+": first argument must be a database handle (pool, connection or transaction)")
}

// IsInvalidHandle reports whether err came from calling a helper without a handle.
func IsInvalidHandle(err error) bool { return errs.IsInvalidHandle(err) }

// IsInvalidInput reports whether err came from an unusable argument, such
// as an empty record passed to Ins or Upd.
func IsInvalidInput(err error) bool { return errs.IsInvalidInput(err) }

// --- package-level helpers using Default() ---

// Query runs Default().Query.
func Query(ctx context.Context, h Handle, d Descriptor) (*Result, error) {
	return Default().Query(ctx, h, d)
}

// One runs Default().One.
func One(ctx context.Context, h Handle, d Descriptor) (Row, Metadata, error) {
	return Default().One(ctx, h, d)
}

// All runs Default().All.
func All(ctx context.Context, h Handle, d Descriptor) ([]Row, Metadata, error) {
	return Default().All(ctx, h, d)
}

// Get runs Default().Get.
func Get(ctx context.Context, h Handle, table, column string, value any) (Row, Metadata, error) {
	return Default().Get(ctx, h, table, column, value)
}

// Sel runs Default().Sel.
func Sel(ctx context.Context, h Handle, table, column string, value any) ([]Row, Metadata, error) {
	return Default().Sel(ctx, h, table, column, value)
}

// Ins runs Default().Ins.
func Ins(ctx context.Context, h Handle, table string, rec Record) (Metadata, error) {
	return Default().Ins(ctx, h, table, rec)
}

// Upd runs Default().Upd.
func Upd(ctx context.Context, h Handle, table, column string, value any, rec Record) (Metadata, error) {
	return Default().Upd(ctx, h, table, column, value, rec)
}

// Del runs Default().Del.
func Del(ctx context.Context, h Handle, table, column string, value any) (Metadata, error) {
	return Default().Del(ctx, h, table, column, value)
}
