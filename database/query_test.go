package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialect_Placeholder(t *testing.T) {
	assert.Equal(t, "$3", DialectPostgres.Placeholder(3))
	assert.Equal(t, "?", DialectMySQL.Placeholder(3))
	assert.Equal(t, "?3", DialectSQLite.Placeholder(3))
	assert.Equal(t, "sqlite", DialectSQLite.String())
}

func TestSelectWhere(t *testing.T) {
	tests := []struct {
		dialect Dialect
		want    string
	}{
		{DialectPostgres, "SELECT * FROM kv WHERE key = $1"},
		{DialectMySQL, "SELECT * FROM kv WHERE key = ?"},
		{DialectSQLite, "SELECT * FROM kv WHERE key = ?1"},
	}

	for _, tt := range tests {
		t.Run(tt.dialect.String(), func(t *testing.T) {
			d := SelectWhere(tt.dialect, "kv", "key", "name")
			assert.Equal(t, tt.want, d.Text)
			assert.Equal(t, []any{"name"}, d.Args)
		})
	}
}

func TestInsertInto(t *testing.T) {
	tests := []struct {
		dialect Dialect
		want    string
	}{
		{DialectPostgres, "INSERT INTO users(id, name, email) VALUES($1, $2, $3)"},
		{DialectMySQL, "INSERT INTO users(id, name, email) VALUES(?, ?, ?)"},
		{DialectSQLite, "INSERT INTO users(id, name, email) VALUES(?1, ?2, ?3)"},
	}

	rec := R("id", 1, "name", "Vic", "email", "vic@example.com")
	for _, tt := range tests {
		t.Run(tt.dialect.String(), func(t *testing.T) {
			d, err := InsertInto(tt.dialect, "users", rec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Text)
			assert.Equal(t, []any{1, "Vic", "vic@example.com"}, d.Args)
		})
	}
}

func TestInsertInto_ColumnsAndArgsFollowRecordOrder(t *testing.T) {
	// Same fields in two orders: columns and args must move together.
	a, err := InsertInto(DialectPostgres, "kv", R("key", "k", "val", "v"))
	require.NoError(t, err)
	b, err := InsertInto(DialectPostgres, "kv", R("val", "v", "key", "k"))
	require.NoError(t, err)

	assert.Equal(t, "INSERT INTO kv(key, val) VALUES($1, $2)", a.Text)
	assert.Equal(t, []any{"k", "v"}, a.Args)
	assert.Equal(t, "INSERT INTO kv(val, key) VALUES($1, $2)", b.Text)
	assert.Equal(t, []any{"v", "k"}, b.Args)
}

func TestUpdateWhere(t *testing.T) {
	tests := []struct {
		dialect Dialect
		want    string
	}{
		{DialectPostgres, "UPDATE users SET name = $1, email = $2 WHERE id = $3"},
		{DialectMySQL, "UPDATE users SET name = ?, email = ? WHERE id = ?"},
		{DialectSQLite, "UPDATE users SET name = ?1, email = ?2 WHERE id = ?3"},
	}

	for _, tt := range tests {
		t.Run(tt.dialect.String(), func(t *testing.T) {
			d, err := UpdateWhere(tt.dialect, "users", "id", 42, R("name", "Bob", "email", "bob@example.com"))
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Text)
			assert.Equal(t, []any{"Bob", "bob@example.com", 42}, d.Args)
		})
	}
}

func TestDeleteWhere(t *testing.T) {
	d := DeleteWhere(DialectPostgres, "kv", "key", "name")
	assert.Equal(t, "DELETE FROM kv WHERE key = $1", d.Text)
	assert.Equal(t, []any{"name"}, d.Args)
}

func TestBuilders_IdentifiersAreNotQuoted(t *testing.T) {
	d := SelectWhere(DialectPostgres, `public."Users"`, `"Email"`, "x")
	assert.Equal(t, `SELECT * FROM public."Users" WHERE "Email" = $1`, d.Text)
}

func TestBuilders_EmptyRecord(t *testing.T) {
	_, err := InsertInto(DialectPostgres, "kv", nil)
	assert.True(t, IsInvalidInput(err))

	_, err = UpdateWhere(DialectPostgres, "kv", "key", "k", Record{})
	assert.True(t, IsInvalidInput(err))
}
