package query

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/teranos/rowdb/errors"
	"github.com/teranos/rowdb/logger"
	"github.com/teranos/rowdb/row"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestExecSumsResults(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(`INSERT OR ABORT INTO "t" ("a") VALUES (?), (?)`).
		WithArgs(1, 2).
		WillReturnResult(sqlmock.NewResult(2, 2))
	mock.ExpectExec(`INSERT OR ABORT INTO "t" DEFAULT VALUES`).
		WillReturnResult(sqlmock.NewResult(3, 1))

	stmts, err := Insert{Table: "t", Rows: []row.Values{{"a": 1}, {"a": 2}, {}}}.Build()
	require.NoError(t, err)

	ex := Executor{Conn: db, Logger: zaptest.NewLogger(t).Sugar()}
	res, err := ex.Exec(context.Background(), stmts...)
	require.NoError(t, err)
	assert.Equal(t, Result{RowsAffected: 3, LastInsertID: 3}, res)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecStopsAtFirstError(t *testing.T) {
	db, mock := newMock(t)
	engineErr := errors.New("UNIQUE constraint failed: t.a")
	mock.ExpectExec(`DELETE FROM "t"`).WillReturnError(engineErr)

	ex := Executor{Conn: db}
	_, err := ex.Exec(context.Background(),
		Statement{SQL: `DELETE FROM "t"`},
		Statement{SQL: `DELETE FROM "u"`})
	require.Error(t, err)
	assert.True(t, errors.Is(err, engineErr), "engine errors stay inspectable")
	assert.NoError(t, mock.ExpectationsWereMet(), "second statement never ran")
}

func TestExecInsertIDOnlyForInserts(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(`UPDATE OR ABORT "t" SET "a" = ?`).
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(99, 2))

	st, err := Update{Table: "t", Set: row.Values{"a": 1}, All: true}.Build()
	require.NoError(t, err)
	res, err := Executor{Conn: db}.Exec(context.Background(), st)
	require.NoError(t, err)
	assert.Equal(t, Result{RowsAffected: 2}, res, "a stale rowid is not reported")
}

func TestExecAtomic(t *testing.T) {
	ctx := context.Background()
	stmts, err := Insert{Table: "t", Rows: []row.Values{{"a": 1}, {"b": 2}}}.Build()
	require.NoError(t, err)
	require.Len(t, stmts, 2)
	engineErr := errors.New("UNIQUE constraint failed: t.b")

	t.Run("commits together", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec(stmts[0].SQL).WithArgs(1).WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec(stmts[1].SQL).WithArgs(2).WillReturnResult(sqlmock.NewResult(2, 1))
		mock.ExpectCommit()

		res, applied, err := Executor{Conn: db}.ExecAtomic(ctx, stmts...)
		require.NoError(t, err)
		assert.Equal(t, 2, applied)
		assert.Equal(t, Result{RowsAffected: 2, LastInsertID: 2}, res)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on failure", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec(stmts[0].SQL).WithArgs(1).WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec(stmts[1].SQL).WithArgs(2).WillReturnError(engineErr)
		mock.ExpectRollback()

		res, applied, err := Executor{Conn: db}.ExecAtomic(ctx, stmts...)
		require.Error(t, err)
		assert.True(t, errors.Is(err, engineErr))
		assert.Zero(t, applied)
		assert.Equal(t, Result{}, res)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("inside a caller transaction reports what ran", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec(stmts[0].SQL).WithArgs(1).WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec(stmts[1].SQL).WithArgs(2).WillReturnError(engineErr)
		tx, err := db.Begin()
		require.NoError(t, err)

		_, applied, err := Executor{Conn: tx}.ExecAtomic(ctx, stmts...)
		require.Error(t, err)
		assert.Equal(t, 1, applied)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("single statement skips the transaction", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec(stmts[0].SQL).WithArgs(1).WillReturnResult(sqlmock.NewResult(1, 1))

		_, applied, err := Executor{Conn: db}.ExecAtomic(ctx, stmts[0])
		require.NoError(t, err)
		assert.Equal(t, 1, applied)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestQueryReturnsValues(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`SELECT * FROM "users" WHERE age > ?`).
		WithArgs(18).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "age"}).
			AddRow(int64(1), "ada", int64(36)).
			AddRow(int64(2), "bob", nil))

	st, err := Select{Table: "users", Where: Where("age > ?", 18)}.Build()
	require.NoError(t, err)

	cols, rows, err := Executor{Conn: db}.Query(context.Background(), st)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "age"}, cols)
	assert.Equal(t, []row.Values{
		{"id": int64(1), "name": "ada", "age": int64(36)},
		{"id": int64(2), "name": "bob", "age": nil},
	}, rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryInt(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`SELECT COUNT(*) FROM "t"`).
		WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(int64(42)))

	st, err := Count{Table: "t"}.Build()
	require.NoError(t, err)
	n, err := Executor{Conn: db}.QueryInt(context.Background(), st)
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)
}

func TestQueryError(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`SELECT * FROM "gone"`).WillReturnError(errors.New("no such table: gone"))

	_, _, err := Executor{Conn: db}.Query(context.Background(), Statement{SQL: `SELECT * FROM "gone"`})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such table")
}

func TestExecLogsContextFields(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(`DELETE FROM "t"`).WillReturnResult(sqlmock.NewResult(0, 4))

	core, logs := observer.New(zapcore.DebugLevel)
	ex := Executor{Conn: db, Logger: zap.New(core).Sugar()}
	ctx := logger.WithOperation(logger.WithComponent(context.Background(), "cli"), "delete")
	_, err := ex.Exec(ctx, Statement{SQL: `DELETE FROM "t"`})
	require.NoError(t, err)

	entries := logs.FilterMessage("Executed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "cli", fields[logger.FieldComponent])
	assert.Equal(t, "delete", fields[logger.FieldOperation])
	assert.Equal(t, int64(4), fields[logger.FieldCount])
}
