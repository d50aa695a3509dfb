package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockingHandle holds every Execute until release is closed.
type blockingHandle struct {
	fakeHandle
	release chan struct{}
}

func (b *blockingHandle) Execute(ctx context.Context, d Descriptor) (*Result, error) {
	<-b.release
	return b.fakeHandle.Execute(ctx, d)
}

func TestQueryAsync_Await(t *testing.T) {
	h := &fakeHandle{res: rowsResult(R("a", 1))}

	fut, err := New().QueryAsync(context.Background(), h, Command("SELECT 1 AS a"))
	require.NoError(t, err)

	res, err := fut.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Row{R("a", 1)}, res.Rows)
}

func TestQueryAsync_ErrorThroughFuture(t *testing.T) {
	dbErr := errors.New(`relation "nonexistent" does not exist`)
	h := &fakeHandle{err: dbErr}

	fut, err := New().QueryAsync(context.Background(), h, Command("DELETE FROM nonexistent"))
	require.NoError(t, err, "execution errors must not be reported synchronously")

	res, err := fut.Await(context.Background())
	assert.Same(t, dbErr, err)
	assert.Nil(t, res)
}

func TestFuture_Then(t *testing.T) {
	h := &fakeHandle{dialect: DialectPostgres, res: rowsResult(R("key", "name", "val", "Vic"))}

	fut, err := New().GetAsync(context.Background(), h, "kv", "key", "name")
	require.NoError(t, err)

	got := make(chan Single, 1)
	fut.Then(func(s Single, err error) {
		assert.NoError(t, err)
		got <- s
	})

	select {
	case s := <-got:
		assert.Equal(t, R("key", "name", "val", "Vic"), s.Row)
	case <-time.After(2 * time.Second):
		t.Fatal("callback was not invoked")
	}
}

func TestFuture_ThenOnError(t *testing.T) {
	dbErr := errors.New("unique violation")
	h := &fakeHandle{err: dbErr}

	fut, err := New().InsAsync(context.Background(), h, "kv", R("key", "name"))
	require.NoError(t, err)

	gotErr := make(chan error, 1)
	fut.Then(func(meta Metadata, err error) {
		assert.Equal(t, Metadata{}, meta)
		gotErr <- err
	})

	select {
	case err := <-gotErr:
		assert.Same(t, dbErr, err)
	case <-time.After(2 * time.Second):
		t.Fatal("callback was not invoked")
	}
}

func TestFuture_AwaitHonoursContext(t *testing.T) {
	h := &blockingHandle{release: make(chan struct{})}
	defer close(h.release)

	fut, err := New().AllAsync(context.Background(), h, Command("SELECT pg_sleep(10)"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = fut.Await(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	select {
	case <-fut.Done():
		t.Fatal("future completed while the handle was still blocked")
	default:
	}
}

func TestAsync_AllOperations(t *testing.T) {
	ctx := context.Background()
	diag := &recordingDiagnostics{}
	x := New(WithDiagnostics(diag))
	h := &fakeHandle{dialect: DialectSQLite, res: rowsResult(R("k", 1), R("k", 2))}

	one, err := x.OneAsync(ctx, h, Command("SELECT k FROM t"))
	require.NoError(t, err)
	s, err := one.Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, R("k", 1), s.Row)
	assert.Len(t, diag.warnings, 1)

	sel, err := x.SelAsync(ctx, h, "t", "k", 1)
	require.NoError(t, err)
	res, err := sel.Await(ctx)
	require.NoError(t, err)
	assert.Len(t, res.Rows, 2)
	assert.Equal(t, "SELECT * FROM t WHERE k = ?1", h.last(t).Text)

	upd, err := x.UpdAsync(ctx, h, "t", "k", 1, R("v", "x"))
	require.NoError(t, err)
	_, err = upd.Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, Command("UPDATE t SET v = ?1 WHERE k = ?2", "x", 1), h.last(t))

	del, err := x.DelAsync(ctx, h, "t", "k", 1)
	require.NoError(t, err)
	_, err = del.Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, Command("DELETE FROM t WHERE k = ?1", 1), h.last(t))

	_, err = x.InsAsync(ctx, h, "t", nil)
	assert.True(t, IsInvalidInput(err))
}
