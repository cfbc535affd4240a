package row

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/rowdb/errors"
)

type notARow struct {
	Name Field[string]
}

func typeOf[T any]() reflect.Type { return reflect.TypeFor[T]() }

func TestIsRecordType(t *testing.T) {
	assert.True(t, IsRecordType(typeOf[person]()))
	assert.True(t, IsRecordType(typeOf[*person]()))
	assert.False(t, IsRecordType(typeOf[notARow]()))
	assert.False(t, IsRecordType(typeOf[int]()))
	assert.False(t, IsRecordType(nil))
}

func TestAttrs(t *testing.T) {
	p := &person{Name: Of("ada")}

	attrs, err := Attrs(p)
	require.NoError(t, err)

	var names []string
	for _, a := range attrs {
		names = append(names, a.Name)
	}
	assert.Equal(t, []string{"ID", "Name", "Age"}, names, "unexported and Model fields are skipped")

	require.NoError(t, attrs[0].Slot.Assign(int64(3)))
	assert.Equal(t, int64(3), p.ID.MustGet(), "slots of a pointer write through")
}

func TestAttrsRejectsNonRows(t *testing.T) {
	for _, v := range []any{notARow{}, 42, "x", nil, (*person)(nil)} {
		_, err := Attrs(v)
		require.Error(t, err, "%#v", v)
		assert.True(t, errors.Is(err, errors.ErrConversion))
	}
}

func TestIsMissing(t *testing.T) {
	p := person{Name: Of("ada")}
	assert.False(t, IsMissing(p, "Name"))
	assert.True(t, IsMissing(p, "Age"))
	assert.True(t, IsMissing(p, "Nope"))
}

func TestEqualIgnoresNothingButAbsence(t *testing.T) {
	a := person{Name: Of("ada")}
	b := person{Name: Of("ada")}
	c := person{Name: Of("ada"), Age: Null[int64]()}
	d := person{Name: Of("grace")}

	assert.True(t, Equal(a, b))
	assert.True(t, Equal(&a, &b))
	assert.False(t, Equal(a, c), "present NULL differs from unfetched")
	assert.False(t, Equal(a, d))
	assert.False(t, Equal(a, &b), "value and pointer are different types")
}

func TestHashConsistentWithEqual(t *testing.T) {
	age := int64(36)
	a := person{Name: Of("ada"), Age: Of(&age)}
	other := int64(36)
	b := person{Name: Of("ada"), Age: Of(&other)}
	c := person{Name: Of("ada")}

	require.True(t, Equal(a, b))
	assert.Equal(t, Hash(a), Hash(b))
	assert.NotEqual(t, Hash(a), Hash(c))
	assert.Equal(t, uint64(0), Hash(42))
}

type blob struct {
	Model
	Data Field[[]byte]
}

func TestHashTreatsNilAndEmptyBytesAlike(t *testing.T) {
	a := blob{Data: Of([]byte(nil))}
	b := blob{Data: Of([]byte{})}
	require.True(t, Equal(a, b))
	assert.Equal(t, Hash(a), Hash(b))
	assert.NotEqual(t, Hash(a), Hash(blob{Data: Of([]byte{0})}))
}

func TestFormatOmitsMissing(t *testing.T) {
	p := person{ID: Of(int64(1)), Name: Of("ada"), Age: Null[int64]()}
	assert.Equal(t, `person(ID=1, Name="ada", Age=NULL)`, Format(p))

	partial := person{Name: Of("ada")}
	assert.Equal(t, `person(Name="ada")`, Format(&partial))
}
