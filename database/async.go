package database

import (
	"context"
)

// Future is the pending outcome of an Async helper. It completes exactly
// once, when the handle returns.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

func start[T any](fn func() (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.val, f.err = fn()
	}()
	return f
}

// Done is closed once the outcome is available.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Await blocks until the outcome is available or ctx is done. A ctx that
// ends first only stops the wait; the statement keeps running under the
// context it was started with.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Then calls cb with the outcome once it is available, on its own
// goroutine. On error the value passed to cb is the zero value.
func (f *Future[T]) Then(cb func(T, error)) {
	go func() {
		<-f.done
		cb(f.val, f.err)
	}()
}

// Single is the outcome of One and Get.
type Single struct {
	Row  Row
	Meta Metadata
}

// QueryAsync starts Query. The returned error reports only a nil handle;
// execution errors arrive through the Future.
func (x *Helpers) QueryAsync(ctx context.Context, h Handle, d Descriptor) (*Future[*Result], error) {
	if err := checkHandle("database.QueryAsync", h); err != nil {
		return nil, err
	}
	return start(func() (*Result, error) { return x.query(ctx, h, d) }), nil
}

// OneAsync starts One.
func (x *Helpers) OneAsync(ctx context.Context, h Handle, d Descriptor) (*Future[Single], error) {
	if err := checkHandle("database.OneAsync", h); err != nil {
		return nil, err
	}
	return x.startOne(ctx, "one", h, d), nil
}

// AllAsync starts All.
func (x *Helpers) AllAsync(ctx context.Context, h Handle, d Descriptor) (*Future[*Result], error) {
	if err := checkHandle("database.AllAsync", h); err != nil {
		return nil, err
	}
	return start(func() (*Result, error) { return x.query(ctx, h, d) }), nil
}

// GetAsync starts Get.
func (x *Helpers) GetAsync(ctx context.Context, h Handle, table, column string, value any) (*Future[Single], error) {
	if err := checkHandle("database.GetAsync", h); err != nil {
		return nil, err
	}
	return x.startOne(ctx, "get", h, SelectWhere(h.Dialect(), table, column, value)), nil
}

// SelAsync starts Sel.
func (x *Helpers) SelAsync(ctx context.Context, h Handle, table, column string, value any) (*Future[*Result], error) {
	if err := checkHandle("database.SelAsync", h); err != nil {
		return nil, err
	}
	d := SelectWhere(h.Dialect(), table, column, value)
	return start(func() (*Result, error) { return x.query(ctx, h, d) }), nil
}

// InsAsync starts Ins. An empty record is reported synchronously.
func (x *Helpers) InsAsync(ctx context.Context, h Handle, table string, rec Record) (*Future[Metadata], error) {
	if err := checkHandle("database.InsAsync", h); err != nil {
		return nil, err
	}
	d, err := InsertInto(h.Dialect(), table, rec)
	if err != nil {
		return nil, err
	}
	return start(func() (Metadata, error) { return x.exec(ctx, h, d) }), nil
}

// UpdAsync starts Upd. An empty record is reported synchronously.
func (x *Helpers) UpdAsync(ctx context.Context, h Handle, table, column string, value any, rec Record) (*Future[Metadata], error) {
	if err := checkHandle("database.UpdAsync", h); err != nil {
		return nil, err
	}
	d, err := UpdateWhere(h.Dialect(), table, column, value, rec)
	if err != nil {
		return nil, err
	}
	return start(func() (Metadata, error) { return x.exec(ctx, h, d) }), nil
}

// DelAsync starts Del.
func (x *Helpers) DelAsync(ctx context.Context, h Handle, table, column string, value any) (*Future[Metadata], error) {
	if err := checkHandle("database.DelAsync", h); err != nil {
		return nil, err
	}
	d := DeleteWhere(h.Dialect(), table, column, value)
	return start(func() (Metadata, error) { return x.exec(ctx, h, d) }), nil
}

func (x *Helpers) startOne(ctx context.Context, op string, h Handle, d Descriptor) *Future[Single] {
	return start(func() (Single, error) {
		row, meta, err := x.one(ctx, op, h, d)
		if err != nil {
			return Single{}, err
		}
		return Single{Row: row, Meta: meta}, nil
	})
}

// --- package-level async helpers using Default() ---

// QueryAsync runs Default().QueryAsync.
func QueryAsync(ctx context.Context, h Handle, d Descriptor) (*Future[*Result], error) {
	return Default().QueryAsync(ctx, h, d)
}

// OneAsync runs Default().OneAsync.
func OneAsync(ctx context.Context, h Handle, d Descriptor) (*Future[Single], error) {
	return Default().OneAsync(ctx, h, d)
}

// AllAsync runs Default().AllAsync.
func AllAsync(ctx context.Context, h Handle, d Descriptor) (*Future[*Result], error) {
	return Default().AllAsync(ctx, h, d)
}

// GetAsync runs Default().GetAsync.
func GetAsync(ctx context.Context, h Handle, table, column string, value any) (*Future[Single], error) {
	return Default().GetAsync(ctx, h, table, column, value)
}

// SelAsync runs Default().SelAsync.
func SelAsync(ctx context.Context, h Handle, table, column string, value any) (*Future[*Result], error) {
	return Default().SelAsync(ctx, h, table, column, value)
}

// InsAsync runs Default().InsAsync.
func InsAsync(ctx context.Context, h Handle, table string, rec Record) (*Future[Metadata], error) {
	return Default().InsAsync(ctx, h, table, rec)
}

// UpdAsync runs Default().UpdAsync.
func UpdAsync(ctx context.Context, h Handle, table, column string, value any, rec Record) (*Future[Metadata], error) {
	return Default().UpdAsync(ctx, h, table, column, value, rec)
}

// DelAsync runs Default().DelAsync.
func DelAsync(ctx context.Context, h Handle, table, column string, value any) (*Future[Metadata], error) {
	return Default().DelAsync(ctx, h, table, column, value)
}
