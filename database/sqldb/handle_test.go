package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/koustreak/rowx/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

var quiet = database.New(database.WithDiagnostics(database.NopDiagnostics))

func TestReturnsRows(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"SELECT * FROM kv", true},
		{"  select 1", true},
		{"WITH t AS (SELECT 1) SELECT * FROM t", true},
		{"(SELECT 1) UNION (SELECT 2)", true},
		{"PRAGMA table_info(kv)", true},
		{"SHOW TABLES", true},
		{"INSERT INTO kv (key) VALUES (?) RETURNING id", true},
		{"INSERT INTO kv (key, val) VALUES (?, ?)", false},
		{"UPDATE kv SET val = ? WHERE key = ?", false},
		{"DELETE FROM kv WHERE key = ?", false},
		{"CREATE TABLE kv (key TEXT)", false},
		{"-- fetch\nSELECT * FROM kv", true},
		{"/* hint */ SELECT * FROM kv", true},
		{"/* a */ -- b\n/* c */\n  (select 1)", true},
		{"# mysql comment\nSELECT 1", true},
		{"-- only a comment", false},
		{"/* unterminated SELECT", false},
		{"with gone as (select key from kv) delete from kv where key in (select key from gone)", true},
		{"-- note\nDELETE FROM kv WHERE key = ?", false},
		{"delete from kv where key = ? returning key", true},
		{"UPDATE kv SET returning_x = 1", false},
		{"UPDATE kv SET note = 'RETURNING soon'", false},
		{"UPDATE kv SET note = 'it''s RETURNING' WHERE key = ?", false},
		{`UPDATE kv SET note = 'a\' RETURNING' WHERE key = ?`, false},
		{`UPDATE kv SET "returning" = 1`, false},
		{"UPDATE kv SET val = 1 -- RETURNING later\n", false},
		{"UPDATE kv SET val = 1 /* RETURNING */ WHERE key = ?", false},
		{"UPDATE kv SET val = '/*' RETURNING val", true},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, returnsRows(tt.text))
		})
	}
}

func TestVerb(t *testing.T) {
	assert.Equal(t, "SELECT", verb("\n  select * from kv"))
	assert.Equal(t, "DELETE", verb("delete from kv"))
	assert.Equal(t, "SELECT", verb("(SELECT 1)"))
	assert.Equal(t, "", verb(""))
	assert.Equal(t, "SELECT", verb("-- fetch\nselect * from kv"))
	assert.Equal(t, "UPDATE", verb("/* hint */update kv set val = 1"))
	assert.Equal(t, "", verb("-- nothing else"))
}

func TestHandle_CommentedSelectReturnsRows(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("/* hint */ SELECT * FROM kv WHERE key = ?")).
		WithArgs("name").
		WillReturnRows(sqlmock.NewRows([]string{"key", "val"}).AddRow("name", "Vic"))

	row, meta, err := quiet.One(context.Background(), New(db, database.DialectMySQL),
		database.Command("/* hint */ SELECT * FROM kv WHERE key = ?", "name"))
	require.NoError(t, err)
	assert.Equal(t, database.R("key", "name", "val", "Vic"), row)
	assert.Equal(t, "SELECT", meta.Command)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandle_QuotedReturningIsExec(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE kv SET note = 'RETURNING soon'")).
		WillReturnResult(sqlmock.NewResult(0, 4))

	res, err := quiet.Query(context.Background(), New(db, database.DialectMySQL),
		database.Command("UPDATE kv SET note = 'RETURNING soon'"))
	require.NoError(t, err)
	assert.Equal(t, int64(4), res.Meta.RowsAffected)
	assert.Empty(t, res.Rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNew_NilQuerier(t *testing.T) {
	h := New(nil, database.DialectMySQL)
	assert.Nil(t, h)

	_, err := quiet.Query(context.Background(), h, database.Command("SELECT 1"))
	assert.True(t, database.IsInvalidHandle(err))
}

func TestHandle_GetWithQuestionMarks(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM kv WHERE key = ?")).
		WithArgs("name").
		WillReturnRows(sqlmock.NewRows([]string{"key", "val"}).AddRow("name", "Vic"))

	row, meta, err := quiet.Get(context.Background(), New(db, database.DialectMySQL), "kv", "key", "name")
	require.NoError(t, err)
	assert.Equal(t, database.R("key", "name", "val", "Vic"), row)
	assert.Equal(t, "SELECT", meta.Command)
	assert.Equal(t, int64(1), meta.RowsAffected)
	assert.Equal(t, []string{"key", "val"}, meta.Columns)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandle_SelNoRows(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM kv WHERE key = ?1")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"key", "val"}))

	rows, meta, err := quiet.Sel(context.Background(), New(db, database.DialectSQLite), "kv", "key", "missing")
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
	assert.Equal(t, int64(0), meta.RowsAffected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandle_InsUsesExec(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO kv (key, val) VALUES (?, ?)")).
		WithArgs("name", "Vic").
		WillReturnResult(sqlmock.NewResult(0, 1))

	meta, err := quiet.Ins(context.Background(), New(db, database.DialectMySQL), "kv", database.R("key", "name", "val", "Vic"))
	require.NoError(t, err)
	assert.Equal(t, database.Metadata{Command: "INSERT", RowsAffected: 1}, meta)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandle_UpdAffectsAllMatching(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET active = ? WHERE team = ?")).
		WithArgs(false, int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	meta, err := quiet.Upd(context.Background(), New(db, database.DialectMySQL), "users", "team", int64(7), database.R("active", false))
	require.NoError(t, err)
	assert.Equal(t, int64(3), meta.RowsAffected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandle_RowsAffectedUnavailable(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM kv WHERE key = ?")).
		WithArgs("name").
		WillReturnResult(sqlmock.NewErrorResult(errors.New("not supported")))

	meta, err := quiet.Del(context.Background(), New(db, database.DialectMySQL), "kv", "key", "name")
	require.NoError(t, err)
	assert.Equal(t, int64(-1), meta.RowsAffected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandle_ErrorsUnchanged(t *testing.T) {
	db, mock := newMock(t)
	execErr := errors.New("no such table: nonexistent_table")
	queryErr := errors.New("connection reset")

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM nonexistent_table")).WillReturnError(execErr)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM kv")).WillReturnError(queryErr)

	h := New(db, database.DialectSQLite)

	_, err := quiet.Query(context.Background(), h, database.Command("DELETE FROM nonexistent_table"))
	assert.Same(t, execErr, err)

	_, _, err = quiet.All(context.Background(), h, database.Command("SELECT * FROM kv"))
	assert.Same(t, queryErr, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandle_RowError(t *testing.T) {
	db, mock := newMock(t)
	rowErr := errors.New("lost connection mid-result")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM kv")).
		WillReturnRows(sqlmock.NewRows([]string{"key"}).AddRow("a").AddRow("b").RowError(1, rowErr))

	_, _, err := quiet.All(context.Background(), New(db, database.DialectMySQL), database.Command("SELECT * FROM kv"))
	assert.Same(t, rowErr, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandle_Normalizer(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM kv")).
		WillReturnRows(sqlmock.NewRowsWithColumnDefinition(
			sqlmock.NewColumn("key").OfType("VARCHAR", ""),
			sqlmock.NewColumn("blob").OfType("BLOB", []byte{}),
		).AddRow([]byte("name"), []byte{0x01}))

	text := func(col *sql.ColumnType, v any) any {
		if b, ok := v.([]byte); ok && col.DatabaseTypeName() == "VARCHAR" {
			return string(b)
		}
		return v
	}

	row, _, err := quiet.One(context.Background(), New(db, database.DialectMySQL, WithNormalizer(text)), database.Command("SELECT * FROM kv"))
	require.NoError(t, err)
	assert.Equal(t, "name", row.Value("key"))
	assert.Equal(t, []byte{0x01}, row.Value("blob"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandle_Tx(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM kv WHERE key = ?")).
		WithArgs("name").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)

	_, err = quiet.Del(context.Background(), New(tx, database.DialectMySQL), "kv", "key", "name")
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}
