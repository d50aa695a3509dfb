package schema

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/rowx/database"
	"github.com/koustreak/rowx/database/mysql"
	"github.com/koustreak/rowx/database/postgres"
	"github.com/koustreak/rowx/database/sqlite"
	"github.com/koustreak/rowx/internal/errs"
)

func openSQLite(t *testing.T) *sqlite.DB {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.Open(ctx, &database.Config{DSN: filepath.Join(t.TempDir(), "schema.db")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	for _, stmt := range []string{
		"CREATE TABLE users (id INTEGER PRIMARY KEY, email TEXT NOT NULL, plan TEXT DEFAULT 'free')",
		"CREATE TABLE kv (key TEXT PRIMARY KEY, val TEXT)",
	} {
		_, err := database.Query(ctx, db, database.Command(stmt))
		require.NoError(t, err)
	}
	return db
}

func TestSQLite_ListTables(t *testing.T) {
	i := New(openSQLite(t), nil)

	tables, err := i.ListTables(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"kv", "users"}, tables)

	ok, err := i.TableExists(context.Background(), "users")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = i.TableExists(context.Background(), "orders")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLite_InspectTable(t *testing.T) {
	i := New(openSQLite(t), nil)

	info, err := i.InspectTable(context.Background(), "users")
	require.NoError(t, err)
	assert.Equal(t, "users", info.Name)
	require.Len(t, info.Columns, 3)

	id, email, plan := info.Columns[0], info.Columns[1], info.Columns[2]
	assert.Equal(t, "id", id.Name)
	assert.Equal(t, "INTEGER", id.DataType)
	assert.True(t, id.IsPrimaryKey)
	assert.False(t, id.IsNullable)

	assert.Equal(t, "email", email.Name)
	assert.False(t, email.IsNullable)
	assert.Nil(t, email.DefaultValue)

	assert.True(t, plan.IsNullable)
	require.NotNil(t, plan.DefaultValue)
	assert.Equal(t, "'free'", *plan.DefaultValue)
}

func TestSQLite_InspectMissingTable(t *testing.T) {
	_, err := New(openSQLite(t), nil).InspectTable(context.Background(), "orders")
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))
}

func TestSQLite_InspectAll(t *testing.T) {
	infos, err := New(openSQLite(t), nil).InspectAll(context.Background())
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "kv", infos[0].Name)
	assert.Equal(t, "users", infos[1].Name)
}

func TestPostgres_Inspect(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("FROM information_schema.tables").
		WillReturnRows(mock.NewRows([]string{"table_name"}).AddRow("users"))
	mock.ExpectQuery("FROM information_schema.columns").WithArgs("users").
		WillReturnRows(mock.NewRows([]string{"column_name", "data_type", "is_nullable", "column_default", "is_primary_key"}).
			AddRow("id", "bigint", false, "nextval('users_id_seq'::regclass)", true).
			AddRow("email", "text", true, nil, false))

	infos, err := New(postgres.New(mock), nil).InspectAll(context.Background())
	require.NoError(t, err)
	require.Len(t, infos, 1)

	cols := infos[0].Columns
	require.Len(t, cols, 2)
	assert.True(t, cols[0].IsPrimaryKey)
	assert.Equal(t, "nextval('users_id_seq'::regclass)", *cols[0].DefaultValue)
	assert.True(t, cols[1].IsNullable)
	assert.Nil(t, cols[1].DefaultValue)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQL_Inspect(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("FROM information_schema.columns").WithArgs("users").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "is_nullable", "column_default", "is_primary_key"}).
			AddRow([]byte("id"), []byte("bigint"), int64(0), nil, int64(1)).
			AddRow([]byte("email"), []byte("varchar"), int64(1), []byte("none"), int64(0)))

	info, err := New(mysql.NewHandle(db), nil).InspectTable(context.Background(), "users")
	require.NoError(t, err)
	require.Len(t, info.Columns, 2)
	assert.Equal(t, "id", info.Columns[0].Name)
	assert.Equal(t, "bigint", info.Columns[0].DataType)
	assert.True(t, info.Columns[0].IsPrimaryKey)
	assert.False(t, info.Columns[0].IsNullable)
	assert.Equal(t, "none", *info.Columns[1].DefaultValue)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTruthy(t *testing.T) {
	for _, v := range []any{true, int64(1), int32(2), "1", "true", []byte("1")} {
		assert.True(t, truthy(v), "%#v", v)
	}
	for _, v := range []any{false, int64(0), "0", "no", nil, 1.5} {
		assert.False(t, truthy(v), "%#v", v)
	}
}
