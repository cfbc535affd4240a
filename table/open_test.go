package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/rowdb/errors"
	rowdbtest "github.com/teranos/rowdb/internal/testing"
	"github.com/teranos/rowdb/query"
	"github.com/teranos/rowdb/row"
	"github.com/teranos/rowdb/schema"
)

func TestOpenModes(t *testing.T) {
	ctx := t.Context()

	t.Run("create fails on an existing table", func(t *testing.T) {
		conn := rowdbtest.CreateTestDB(t)
		s := schema.MustCompile[person](schema.WithTableName("people"))
		_, err := Open(ctx, conn, s, ModeCreate)
		require.NoError(t, err)

		_, err = Open(ctx, conn, s, ModeCreate)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrTableExists))
		assert.True(t, errors.IsDomainError(err))
	})

	t.Run("create or extend adds columns and indices", func(t *testing.T) {
		conn := rowdbtest.CreateTestDB(t)
		v1 := schema.MustCompile[personV1](schema.WithTableName("people"))
		h1, err := Open(ctx, conn, v1, ModeCreateOrExtend)
		require.NoError(t, err)
		_, err = h1.InsertSingleRaw(ctx, row.Values{"name": "old"})
		require.NoError(t, err)

		v2 := schema.MustCompile[person](
			schema.WithTableName("people"),
			schema.WithIndex(schema.Index{Columns: []string{"age"}}))

		_, err = Open(ctx, conn, v2, ModeCreateOrExtend, WithReadonly())
		assert.True(t, errors.Is(err, errors.ErrReadonly), "extending needs a writable handle")

		h2, err := Open(ctx, conn, v2, ModeCreateOrExtend)
		require.NoError(t, err)

		drift, err := h2.Diff(ctx)
		require.NoError(t, err)
		assert.True(t, drift.Empty(), drift.String())

		people, err := Of[person](h2)
		require.NoError(t, err)
		old, err := people.SelectFirst(ctx, Query{Where: query.Where("name = ?", "old")})
		require.NoError(t, err)
		assert.Nil(t, old.Age.MustGet(), "existing rows keep their data")

		// Reopening an in-sync table changes nothing
		_, err = Open(ctx, conn, v2, ModeCreateOrExtend, WithReadonly())
		require.NoError(t, err)
	})

	t.Run("extend leaves extra columns alone", func(t *testing.T) {
		conn := rowdbtest.CreateTestDB(t)
		_, err := Open(ctx, conn, schema.MustCompile[person](schema.WithTableName("people")), ModeCreate)
		require.NoError(t, err)

		h, err := Open(ctx, conn, schema.MustCompile[personV1](schema.WithTableName("people")), ModeCreateOrExtend)
		require.NoError(t, err)
		drift, err := h.Diff(ctx)
		require.NoError(t, err)
		require.Len(t, drift.Extra, 1)
		assert.Equal(t, "age", drift.Extra[0].Name)

		_, err = h.InsertSingle(ctx, &personV1{Name: row.Of("ada")})
		require.NoError(t, err)
		got, err := h.Select(ctx, Query{})
		require.NoError(t, err, "columns the row type lacks are not read")
		require.Len(t, got, 1)
		assert.Equal(t, "ada", got[0].(*personV1).Name.MustGet())

		raw, err := h.SelectRaw(ctx, Query{})
		require.NoError(t, err)
		assert.Equal(t, []row.Values{{"id": int64(1), "name": "ada"}}, raw)
	})

	t.Run("readonly handle cannot create", func(t *testing.T) {
		conn := rowdbtest.CreateTestDB(t)
		_, err := Open(ctx, conn, schema.MustCompile[person](), ModeCreateOrExtend, WithReadonly())
		assert.True(t, errors.Is(err, errors.ErrReadonly))
	})

	t.Run("reflect mode uses the live table", func(t *testing.T) {
		conn := rowdbtest.CreateTestDB(t)
		s := schema.MustCompile[person](schema.WithTableName("people"))
		_, err := Open(ctx, conn, s, ModeCreate)
		require.NoError(t, err)

		h, err := Open(ctx, conn, s, ModeReflect)
		require.NoError(t, err)
		assert.True(t, h.Schema().Reflected())
		assert.Equal(t, []string{"id", "name", "age"}, h.Schema().ColumnNames())
	})
}

func TestReflect(t *testing.T) {
	ctx := t.Context()
	conn := rowdbtest.CreateTestDB(t)
	for _, ddl := range []string{
		`CREATE TABLE parent (id INTEGER PRIMARY KEY AUTOINCREMENT, code VARCHAR(8) NOT NULL UNIQUE)`,
		`CREATE TABLE child (
			id INTEGER PRIMARY KEY,
			parent_id INTEGER REFERENCES parent (id) ON DELETE CASCADE,
			note TEXT DEFAULT 'none'
		)`,
		`CREATE INDEX ix_child_note ON child (note)`,
	} {
		_, err := conn.ExecContext(ctx, ddl)
		require.NoError(t, err)
	}

	t.Run("missing table", func(t *testing.T) {
		_, err := Reflect(ctx, conn, "nope")
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrTableNotFound))
	})

	t.Run("columns, keys and uniqueness", func(t *testing.T) {
		h, err := Reflect(ctx, conn, "parent")
		require.NoError(t, err)
		s := h.Schema()

		id, ok := s.Column("id")
		require.True(t, ok)
		assert.True(t, id.PrimaryKey)
		assert.True(t, id.AutoIncrement)
		assert.False(t, id.Nullable)

		code, ok := s.Column("code")
		require.True(t, ok)
		assert.Equal(t, "VARCHAR", code.Type.Name)
		assert.Equal(t, 8, code.Type.Size)
		assert.True(t, code.Unique)
		assert.False(t, code.Nullable)
		assert.Empty(t, s.Indices(), "autoindexes are not secondary indices")
	})

	t.Run("foreign keys, defaults and indices", func(t *testing.T) {
		h, err := Reflect(ctx, conn, "child")
		require.NoError(t, err)
		s := h.Schema()

		fk, ok := s.Column("parent_id")
		require.True(t, ok)
		require.NotNil(t, fk.ForeignKey)
		assert.Equal(t, schema.ForeignKey{Table: "parent", Column: "id", OnDelete: "CASCADE"}, *fk.ForeignKey)
		assert.True(t, fk.Nullable)

		note, _ := s.Column("note")
		assert.True(t, note.HasDefault)
		assert.Equal(t, "'none'", note.Default)

		require.Len(t, s.Indices(), 1)
		assert.Equal(t, schema.Index{Name: "ix_child_note", Columns: []string{"note"}}, s.Indices()[0])
	})

	t.Run("raw operations only", func(t *testing.T) {
		h, err := Reflect(ctx, conn, "parent")
		require.NoError(t, err)

		_, err = h.InsertSingleRaw(ctx, row.Values{"code": "abc"})
		require.NoError(t, err)
		rows, err := h.SelectRaw(ctx, Query{Columns: []string{"code"}})
		require.NoError(t, err)
		assert.Equal(t, []row.Values{{"code": "abc"}}, rows)

		_, err = h.Select(ctx, Query{})
		assert.True(t, errors.Is(err, errors.ErrConversion))
		_, err = h.InsertSingle(ctx, &person{})
		assert.True(t, errors.Is(err, errors.ErrConversion))
		_, err = h.SelectRaw(ctx, Query{Columns: []string{"missing"}})
		assert.True(t, errors.Is(err, errors.ErrUnknownColumn))
	})

	t.Run("file columns must exist", func(t *testing.T) {
		_, err := Reflect(ctx, conn, "child", WithFileColumn("payload", t.TempDir(), ""))
		assert.True(t, errors.Is(err, errors.ErrUnknownColumn))
	})

	t.Run("tables", func(t *testing.T) {
		names, err := Tables(ctx, conn)
		require.NoError(t, err)
		assert.Equal(t, []string{"child", "parent"}, names)
	})
}
