// Package row defines the building blocks of rowdb row types.
//
// A row type is a struct that embeds [Model] and declares its columns as
// [Field] values:
//
//	type User struct {
//	    row.Model
//	    ID   row.Field[int64]  `db:"id,pk,autoincrement"`
//	    Name row.Field[string] `db:"name"`
//	    Age  row.Field[*int64] `db:"age"`
//	}
//
// A Field is either unfetched (the zero value) or present. Present values may
// themselves be nil for pointer types, which is how NULL is represented. The
// two states never collide: an unfetched Age and an Age fetched as NULL are
// different values.
package row

import (
	"database/sql"
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/teranos/rowdb/errors"
)

// Model marks a struct as a row type. Embed it by value.
type Model struct{}

func (Model) rowModel() {}

// Record is implemented by every struct embedding Model.
type Record interface {
	rowModel()
}

// Values is a persisted row or a partial row: column name to value.
type Values map[string]any

// Field holds one column value of a row, or nothing when it was not fetched
// or not supplied.
type Field[T any] struct {
	value   T
	present bool
}

// Of returns a present field holding v.
func Of[T any](v T) Field[T] {
	return Field[T]{value: v, present: true}
}

// Null returns a present field holding nil.
func Null[T any]() Field[*T] {
	return Field[*T]{present: true}
}

// Get returns the value, or ErrDataNotAvailable when the field is unfetched.
func (f Field[T]) Get() (T, error) {
	if !f.present {
		var zero T
		return zero, errors.Wrapf(errors.ErrDataNotAvailable, "%s field was not fetched", typeName[T]())
	}
	return f.value, nil
}

// MustGet is Get for callers that know the field was selected. Panics otherwise.
func (f Field[T]) MustGet() T {
	v, err := f.Get()
	if err != nil {
		panic(err)
	}
	return v
}

// Raw returns the stored value and whether it is present, without failing.
func (f Field[T]) Raw() (T, bool) {
	return f.value, f.present
}

// IsMissing reports whether the field is unfetched.
func (f Field[T]) IsMissing() bool {
	return !f.present
}

// Set stores v and marks the field present.
func (f *Field[T]) Set(v T) {
	f.value = v
	f.present = true
}

// Unset returns the field to the unfetched state.
func (f *Field[T]) Unset() {
	var zero T
	f.value = zero
	f.present = false
}

// String renders the value, or <missing>.
func (f Field[T]) String() string {
	if !f.present {
		return "<missing>"
	}
	return formatValue(reflect.ValueOf(&f.value).Elem())
}

// Slot lets reflection-driven code read and write a Field without knowing T.
// *Field[T] implements it.
type Slot interface {
	// Value returns the stored value as any and whether it is present.
	Value() (any, bool)
	// Assign converts v to T and stores it. nil stores a present NULL for
	// nullable T and fails otherwise.
	Assign(v any) error
	// Clear marks the slot unfetched.
	Clear()
	// Type reports T.
	Type() reflect.Type
}

// Value implements Slot.
func (f *Field[T]) Value() (any, bool) {
	if !f.present {
		return nil, false
	}
	return any(f.value), true
}

// Clear implements Slot.
func (f *Field[T]) Clear() { f.Unset() }

// Type implements Slot.
func (f *Field[T]) Type() reflect.Type {
	return reflect.TypeFor[T]()
}

// Assign implements Slot.
func (f *Field[T]) Assign(v any) error {
	target := reflect.ValueOf(&f.value).Elem()
	if err := assign(target, v); err != nil {
		return err
	}
	f.present = true
	return nil
}

var (
	scannerType = reflect.TypeFor[sql.Scanner]()
	timeType    = reflect.TypeFor[time.Time]()
)

// assign converts a driver-level value into dst.
func assign(dst reflect.Value, v any) error {
	t := dst.Type()

	if reflect.PointerTo(t).Implements(scannerType) {
		// Fresh value so a failed Scan leaves dst untouched
		tmp := reflect.New(t)
		if err := tmp.Interface().(sql.Scanner).Scan(v); err != nil {
			return errors.Wrapf(errors.ErrConversion, "scan %T into %s: %v", v, t, err)
		}
		dst.Set(tmp.Elem())
		return nil
	}

	if v == nil {
		switch t.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map:
			dst.Set(reflect.Zero(t))
			return nil
		}
		return errors.Wrapf(errors.ErrConversion, "NULL into non-nullable %s", t)
	}

	src := reflect.ValueOf(v)
	if src.Type().AssignableTo(t) {
		dst.Set(src)
		return nil
	}

	if t.Kind() == reflect.Pointer {
		elem := reflect.New(t.Elem())
		if err := assign(elem.Elem(), v); err != nil {
			return err
		}
		dst.Set(elem)
		return nil
	}

	switch {
	case t.Kind() == reflect.Bool:
		switch n := v.(type) {
		case int64:
			dst.SetBool(n != 0)
			return nil
		case bool:
			dst.SetBool(n)
			return nil
		}
	case t == timeType:
		switch s := v.(type) {
		case string:
			return assignTime(dst, s)
		case []byte:
			return assignTime(dst, string(s))
		}
	case t.Kind() == reflect.String:
		if b, ok := v.([]byte); ok {
			dst.SetString(string(b))
			return nil
		}
		if src.Kind() == reflect.String {
			dst.SetString(src.String())
			return nil
		}
	case t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8:
		if s, ok := v.(string); ok {
			dst.SetBytes([]byte(s))
			return nil
		}
		if src.Kind() == reflect.Slice && src.Type().Elem().Kind() == reflect.Uint8 {
			dst.SetBytes(src.Bytes())
			return nil
		}
	case isNumeric(t.Kind()) && isNumeric(src.Kind()):
		return assignNumber(dst, src)
	}

	return errors.Wrapf(errors.ErrConversion, "cannot assign %T to %s", v, t)
}

// Layouts SQLite and go-sqlite3 produce for timestamp text.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func assignTime(dst reflect.Value, s string) error {
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			dst.Set(reflect.ValueOf(ts))
			return nil
		}
	}
	return errors.Wrapf(errors.ErrConversion, "cannot parse %q as time", s)
}

// assignNumber converts between numeric kinds, refusing any value the
// destination cannot hold exactly.
func assignNumber(dst, src reflect.Value) error {
	lossy := func() error {
		return errors.Wrapf(errors.ErrConversion, "%v does not fit %s", src.Interface(), dst.Type())
	}
	switch {
	case src.CanInt():
		n := src.Int()
		switch {
		case dst.CanInt():
			if dst.OverflowInt(n) {
				return lossy()
			}
			dst.SetInt(n)
		case dst.CanUint():
			if n < 0 || dst.OverflowUint(uint64(n)) {
				return lossy()
			}
			dst.SetUint(uint64(n))
		default:
			dst.SetFloat(float64(n))
		}
	case src.CanUint():
		u := src.Uint()
		switch {
		case dst.CanInt():
			if u > math.MaxInt64 || dst.OverflowInt(int64(u)) {
				return lossy()
			}
			dst.SetInt(int64(u))
		case dst.CanUint():
			if dst.OverflowUint(u) {
				return lossy()
			}
			dst.SetUint(u)
		default:
			dst.SetFloat(float64(u))
		}
	default:
		f := src.Float()
		switch {
		case dst.CanInt():
			if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 || dst.OverflowInt(int64(f)) {
				return lossy()
			}
			dst.SetInt(int64(f))
		case dst.CanUint():
			if f != math.Trunc(f) || f < 0 || f >= math.MaxUint64 || dst.OverflowUint(uint64(f)) {
				return lossy()
			}
			dst.SetUint(uint64(f))
		default:
			if dst.OverflowFloat(f) {
				return lossy()
			}
			dst.SetFloat(f)
		}
	}
	return nil
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func typeName[T any]() string {
	return reflect.TypeFor[T]().String()
}

func formatValue(v reflect.Value) string {
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return "NULL"
		}
		v = v.Elem()
	}
	switch x := v.Interface().(type) {
	case string:
		return fmt.Sprintf("%q", x)
	case []byte:
		return fmt.Sprintf("<%d bytes>", len(x))
	case time.Time:
		return x.Format(time.RFC3339Nano)
	}
	return fmt.Sprintf("%v", v.Interface())
}
