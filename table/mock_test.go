package table

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/rowdb/errors"
	"github.com/teranos/rowdb/query"
	"github.com/teranos/rowdb/row"
	"github.com/teranos/rowdb/schema"
)

// mockHandle binds the people schema to sqlmock without touching it.
func mockHandle(t *testing.T, opts ...Option) (*Handle, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	s := schema.MustCompile[person](schema.WithTableName("people"))
	o := collect(opts)
	h, err := newHandle(conn, s, o, handleLogger(o, s.Name()))
	require.NoError(t, err)
	return h, mock
}

func TestRejectedBeforeEngine(t *testing.T) {
	ctx := t.Context()

	tests := []struct {
		name string
		opts []Option
		call func(h *Handle) error
		want error
	}{
		{
			name: "slice to InsertSingle",
			call: func(h *Handle) error {
				_, err := h.InsertSingle(ctx, []*person{{Name: row.Of("x")}})
				return err
			},
			want: errors.ErrShapeMismatch,
		},
		{
			name: "single row to InsertMulti",
			call: func(h *Handle) error {
				_, err := h.InsertMulti(ctx, &person{Name: row.Of("x")})
				return err
			},
			want: errors.ErrShapeMismatch,
		},
		{
			name: "update without scope",
			call: func(h *Handle) error {
				_, err := h.Update(ctx, row.Values{"age": 1}, Scope{})
				return err
			},
			want: errors.ErrUnscopedMutation,
		},
		{
			name: "empty update without scope",
			call: func(h *Handle) error {
				_, err := h.Update(ctx, row.Values{}, Scope{})
				return err
			},
			want: errors.ErrUnscopedMutation,
		},
		{
			name: "delete without scope",
			call: func(h *Handle) error {
				_, err := h.Delete(ctx, Scope{Conflict: query.ConflictReplace})
				return err
			},
			want: errors.ErrUnscopedMutation,
		},
		{
			name: "readonly insert",
			opts: []Option{WithReadonly()},
			call: func(h *Handle) error {
				_, err := h.InsertSingleRaw(ctx, row.Values{"name": "x"})
				return err
			},
			want: errors.ErrReadonly,
		},
		{
			name: "readonly update",
			opts: []Option{WithReadonly()},
			call: func(h *Handle) error {
				_, err := h.Update(ctx, row.Values{"age": 1}, All())
				return err
			},
			want: errors.ErrReadonly,
		},
		{
			name: "readonly delete",
			opts: []Option{WithReadonly()},
			call: func(h *Handle) error {
				_, err := h.Delete(ctx, All())
				return err
			},
			want: errors.ErrReadonly,
		},
		{
			name: "unknown update column",
			call: func(h *Handle) error {
				_, err := h.Update(ctx, row.Values{"nickname": "x"}, All())
				return err
			},
			want: errors.ErrUnknownColumn,
		},
		{
			name: "unknown select column",
			call: func(h *Handle) error {
				_, err := h.Select(ctx, Query{Columns: []string{"nickname"}})
				return err
			},
			want: errors.ErrUnknownColumn,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, mock := mockHandle(t, tt.opts...)
			err := tt.call(h)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.True(t, errors.IsUsageError(err))
			assert.NoError(t, mock.ExpectationsWereMet(), "no statement reaches the engine")
		})
	}
}

func TestStatementsSent(t *testing.T) {
	ctx := t.Context()

	t.Run("object insert", func(t *testing.T) {
		h, mock := mockHandle(t)
		mock.ExpectExec(`INSERT OR ABORT INTO "people" ("age", "name") VALUES (?, ?)`).
			WithArgs(nil, "x").
			WillReturnResult(sqlmock.NewResult(7, 1))

		res, err := h.InsertSingle(ctx, &person{Name: row.Of("x"), Age: row.Null[int64]()})
		require.NoError(t, err)
		assert.Equal(t, query.Result{RowsAffected: 1, LastInsertID: 7}, res)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("select by attribute name", func(t *testing.T) {
		h, mock := mockHandle(t)
		mock.ExpectQuery(`SELECT "name" FROM "people" WHERE age > ? ORDER BY name LIMIT 1`).
			WithArgs(18).
			WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("x"))

		got, err := h.SelectFirstRaw(ctx, Query{
			Columns: []string{"Name"},
			Where:   query.Where("age > ?", 18),
			OrderBy: []string{"name"},
		})
		require.NoError(t, err)
		assert.Equal(t, row.Values{"name": "x"}, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("update with conflict policy", func(t *testing.T) {
		h, mock := mockHandle(t)
		mock.ExpectExec(`UPDATE OR IGNORE "people" SET "name" = ? WHERE id = ?`).
			WithArgs("y", 3).
			WillReturnResult(sqlmock.NewResult(0, 1))

		res, err := h.Update(ctx, &person{Name: row.Of("y")}, Scope{
			Where:    query.Where("id = ?", 3),
			Conflict: query.ConflictIgnore,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), res.RowsAffected)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("engine errors pass through", func(t *testing.T) {
		h, mock := mockHandle(t)
		boom := errors.New("disk I/O error")
		mock.ExpectExec(`DELETE FROM "people"`).WillReturnError(boom)

		_, err := h.Delete(ctx, All())
		require.Error(t, err)
		assert.True(t, errors.Is(err, boom))
		assert.False(t, errors.IsUsageError(err))
		assert.False(t, errors.IsDomainError(err))
	})
}
