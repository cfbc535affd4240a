package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/rowdb/db"
	"github.com/teranos/rowdb/errors"
	rowdbtest "github.com/teranos/rowdb/internal/testing"
	"github.com/teranos/rowdb/query"
	"github.com/teranos/rowdb/row"
	"github.com/teranos/rowdb/schema"
)

type person struct {
	row.Model
	ID   row.Field[int64]  `db:"id,pk,autoincrement"`
	Name row.Field[string] `db:"name"`
	Age  row.Field[*int64] `db:"age"`
}

// personV1 is an older shape of the people table.
type personV1 struct {
	row.Model
	ID   row.Field[int64]  `db:"id,pk,autoincrement"`
	Name row.Field[string] `db:"name"`
}

func ptr[T any](v T) *T { return &v }

func openPeople(t *testing.T, opts ...Option) (*Handle, *Table[person]) {
	t.Helper()
	conn := rowdbtest.CreateTestDB(t)
	s := schema.MustCompile[person](schema.WithTableName("people"))
	h, err := Open(t.Context(), conn, s, ModeCreate, append(opts, WithLogger(zaptest.NewLogger(t).Sugar()))...)
	require.NoError(t, err)
	people, err := Of[person](h)
	require.NoError(t, err)
	return h, people
}

func TestNameOnlyInsertScenario(t *testing.T) {
	ctx := t.Context()
	_, people := openPeople(t)

	for _, name := range []string{"ada", "grace", "linus"} {
		_, err := people.InsertSingle(ctx, &person{Name: row.Of(name)})
		require.NoError(t, err)
	}

	rows, err := people.Select(ctx, Query{OrderBy: []string{"id"}})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for i, p := range rows {
		assert.Equal(t, int64(i+1), p.ID.MustGet(), "ids start at the engine's base")
		age, err := p.Age.Get()
		require.NoError(t, err, "age was selected and must not be unfetched")
		assert.Nil(t, age, "age takes the column default")
	}

	_, err = people.SelectFirst(ctx, Query{Where: query.Where("1 = 0")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
	assert.True(t, errors.IsDomainError(err))
	assert.False(t, errors.IsUsageError(err))

	names, err := people.Select(ctx, Query{Columns: []string{"name"}})
	require.NoError(t, err)
	require.Len(t, names, 3)
	_, err = names[0].Age.Get()
	assert.True(t, errors.Is(err, errors.ErrDataNotAvailable))
	assert.True(t, names[0].ID.IsMissing())
}

func TestInsert(t *testing.T) {
	ctx := t.Context()

	t.Run("multi with mixed column sets", func(t *testing.T) {
		h, people := openPeople(t)
		res, err := people.InsertMulti(ctx, []*person{
			{Name: row.Of("a")},
			{Name: row.Of("b"), Age: row.Of(ptr(int64(40)))},
			{Name: row.Of("c")},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(3), res.RowsAffected)

		n, err := h.Count(ctx, query.Predicate{})
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)

		b, err := people.SelectFirst(ctx, Query{Where: query.Where("name = ?", "b")})
		require.NoError(t, err)
		assert.Equal(t, int64(40), *b.Age.MustGet())
	})

	t.Run("empty multi is a no-op", func(t *testing.T) {
		_, people := openPeople(t)
		res, err := people.InsertMulti(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, query.Result{}, res)
	})

	t.Run("empty raw mapping inserts defaults", func(t *testing.T) {
		conn := rowdbtest.CreateTestDB(t)
		type counter struct {
			row.Model
			ID    row.Field[int64] `db:"id,pk,autoincrement"`
			Value row.Field[int64] `db:"value,default=7"`
		}
		h, err := Open(ctx, conn, schema.MustCompile[counter](), ModeCreate)
		require.NoError(t, err)

		res, err := h.InsertSingleRaw(ctx, row.Values{})
		require.NoError(t, err)
		assert.Equal(t, int64(1), res.LastInsertID)

		got, err := h.SelectFirstRaw(ctx, Query{})
		require.NoError(t, err)
		assert.Equal(t, row.Values{"id": int64(1), "value": int64(7)}, got)
	})

	t.Run("raw rejects unknown columns", func(t *testing.T) {
		h, _ := openPeople(t)
		_, err := h.InsertSingleRaw(ctx, row.Values{"nickname": "x"})
		assert.True(t, errors.Is(err, errors.ErrUnknownColumn))
	})

	t.Run("conflict policies", func(t *testing.T) {
		conn := rowdbtest.CreateTestDB(t)
		type setting struct {
			row.Model
			Key   row.Field[string] `db:"key,pk"`
			Value row.Field[int64]  `db:"value"`
		}
		h, err := Open(ctx, conn, schema.MustCompile[setting](), ModeCreate)
		require.NoError(t, err)
		settings, err := Of[setting](h)
		require.NoError(t, err)

		_, err = settings.InsertSingle(ctx, &setting{Key: row.Of("k"), Value: row.Of(int64(1))})
		require.NoError(t, err)

		_, err = settings.InsertSingle(ctx, &setting{Key: row.Of("k"), Value: row.Of(int64(2))})
		require.Error(t, err)
		assert.True(t, db.IsConstraintViolation(err), "engine errors pass through: %v", err)

		res, err := settings.InsertSingle(ctx, &setting{Key: row.Of("k"), Value: row.Of(int64(3))}, OnConflict(query.ConflictIgnore))
		require.NoError(t, err)
		assert.Equal(t, int64(0), res.RowsAffected)

		_, err = settings.InsertSingle(ctx, &setting{Key: row.Of("k"), Value: row.Of(int64(4))}, OnConflict(query.ConflictReplace))
		require.NoError(t, err)
		got, err := settings.SelectFirst(ctx, Query{})
		require.NoError(t, err)
		assert.Equal(t, int64(4), got.Value.MustGet())
	})

	t.Run("conversion errors surface unchanged", func(t *testing.T) {
		h, _ := openPeople(t)
		_, err := h.InsertSingle(ctx, &personV1{Name: row.Of("x")})
		assert.True(t, errors.Is(err, errors.ErrConversion))
		assert.True(t, errors.IsUsageError(err))
	})
}

func TestUpdateAndDelete(t *testing.T) {
	ctx := t.Context()
	h, people := openPeople(t)
	_, err := people.InsertMulti(ctx, []*person{{Name: row.Of("a")}, {Name: row.Of("b")}, {Name: row.Of("c")}})
	require.NoError(t, err)

	res, err := h.Update(ctx, row.Values{"age": 30}, Matching("name = ?", "b"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.RowsAffected)

	res, err = h.Update(ctx, row.Values{"age": 1}, Matching("1 = 0"))
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.RowsAffected)
	n, err := h.Count(ctx, query.Predicate{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n, "a never-matching update leaves the row count alone")

	res, err = people.Update(ctx, &person{Age: row.Of(ptr(int64(5)))}, All())
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.RowsAffected)
	n, err = h.Count(ctx, query.Where("age = ?", 5))
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	res, err = people.Update(ctx, &person{}, All())
	require.NoError(t, err)
	assert.Equal(t, query.Result{}, res, "no present fields is a no-op")

	res, err = people.Delete(ctx, Matching("name IN (?, ?)", "a", "c"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.RowsAffected)

	res, err = people.Delete(ctx, All())
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.RowsAffected)
}

func TestTypedViewRequiresMatchingRowType(t *testing.T) {
	h, _ := openPeople(t)
	_, err := Of[personV1](h)
	assert.True(t, errors.Is(err, errors.ErrConversion))
}

func TestTxPassthrough(t *testing.T) {
	ctx := t.Context()
	conn := rowdbtest.CreateTestDB(t)
	h, err := Open(ctx, conn, schema.MustCompile[person](schema.WithTableName("people")), ModeCreate)
	require.NoError(t, err)

	tx, err := conn.BeginTx(ctx, nil)
	require.NoError(t, err)
	_, err = h.Tx(tx).InsertSingleRaw(ctx, row.Values{"name": "rolled back"})
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	n, err := h.Count(ctx, query.Predicate{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	tx, err = conn.BeginTx(ctx, nil)
	require.NoError(t, err)
	_, err = h.Tx(tx).InsertSingleRaw(ctx, row.Values{"name": "kept"})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	n, err = h.Count(ctx, query.Predicate{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
