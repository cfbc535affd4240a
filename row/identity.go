package row

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/teranos/rowdb/errors"
)

var (
	slotType   = reflect.TypeFor[Slot]()
	recordType = reflect.TypeFor[Record]()
	modelType  = reflect.TypeFor[Model]()
)

// IsRecordType reports whether t (or *t) is a struct embedding Model.
func IsRecordType(t reflect.Type) bool {
	if t == nil {
		return false
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct && t.Implements(recordType)
}

// IsModel reports whether f is the embedded Model marker.
func IsModel(f reflect.StructField) bool {
	return f.Anonymous && f.Type == modelType
}

// IsSlotType reports whether a struct field of type t is a Field.
func IsSlotType(t reflect.Type) bool {
	return reflect.PointerTo(t).Implements(slotType)
}

// SlotOf returns the Slot of the struct field at index in the addressable struct v.
func SlotOf(v reflect.Value, index int) Slot {
	return v.Field(index).Addr().Interface().(Slot)
}

// Attr is one declared Field of a row, by attribute name.
type Attr struct {
	Name string
	Slot Slot
}

// Attrs lists the Fields of r in declaration order. r may be a row value or a
// pointer to one; for values the slots refer to a private copy.
func Attrs(r any) ([]Attr, error) {
	v, err := addressable(r)
	if err != nil {
		return nil, err
	}
	t := v.Type()
	attrs := make([]Attr, 0, t.NumField())
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() || IsModel(f) || !IsSlotType(f.Type) {
			continue
		}
		attrs = append(attrs, Attr{Name: f.Name, Slot: SlotOf(v, i)})
	}
	return attrs, nil
}

func addressable(r any) (reflect.Value, error) {
	v := reflect.ValueOf(r)
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return reflect.Value{}, errors.Wrapf(errors.ErrConversion, "nil %s", v.Type())
		}
		v = v.Elem()
	} else if v.IsValid() {
		cp := reflect.New(v.Type()).Elem()
		cp.Set(v)
		v = cp
	}
	if !v.IsValid() || !IsRecordType(v.Type()) {
		return reflect.Value{}, errors.Wrapf(errors.ErrConversion, "%T is not a row type (embed row.Model)", r)
	}
	return v, nil
}

// IsMissing reports whether the named attribute of r is unfetched. Unknown
// attributes and non-row values report true.
func IsMissing(r any, attr string) bool {
	attrs, err := Attrs(r)
	if err != nil {
		return true
	}
	for _, a := range attrs {
		if a.Name == attr {
			_, ok := a.Slot.Value()
			return !ok
		}
	}
	return true
}

// Equal reports whether a and b are the same row type with the same set of
// present fields holding equal values. Unfetched fields take no part beyond
// their absence.
func Equal(a, b any) bool {
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}
	aa, err := Attrs(a)
	if err != nil {
		return false
	}
	ba, err := Attrs(b)
	if err != nil {
		return false
	}
	for i := range aa {
		av, aok := aa[i].Slot.Value()
		bv, bok := ba[i].Slot.Value()
		if aok != bok {
			return false
		}
		if aok && !valuesEqual(av, bv) {
			return false
		}
	}
	return true
}

func valuesEqual(a, b any) bool {
	if at, ok := a.(time.Time); ok {
		bt, ok := b.(time.Time)
		return ok && at.Equal(bt)
	}
	if ab, ok := a.([]byte); ok {
		bb, ok := b.([]byte)
		return ok && bytes.Equal(ab, bb)
	}
	return reflect.DeepEqual(a, b)
}

// Hash returns a hash over the present fields of r. Rows that are Equal hash
// the same. Non-row values hash to 0.
func Hash(r any) uint64 {
	attrs, err := Attrs(r)
	if err != nil {
		return 0
	}
	d := xxhash.New()
	fmt.Fprintf(d, "%T", r)
	for _, a := range attrs {
		v, ok := a.Slot.Value()
		if !ok {
			continue
		}
		d.WriteString("\x00" + a.Name + "=")
		d.WriteString(hashKey(v))
	}
	return d.Sum64()
}

func hashKey(v any) string {
	switch x := v.(type) {
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case *time.Time:
		if x == nil {
			return "NULL"
		}
		return x.UTC().Format(time.RFC3339Nano)
	case []byte:
		// nil and empty compare equal
		return fmt.Sprintf("bytes:%x", x)
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return "NULL"
		}
		return fmt.Sprintf("%#v", rv.Elem().Interface())
	}
	return fmt.Sprintf("%#v", v)
}

// Format renders r as TypeName(Attr=value, ...) omitting unfetched fields.
func Format(r any) string {
	attrs, err := Attrs(r)
	if err != nil {
		return fmt.Sprintf("%v", r)
	}
	t := reflect.TypeOf(r)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	parts := make([]string, 0, len(attrs))
	for _, a := range attrs {
		if _, ok := a.Slot.Value(); !ok {
			continue
		}
		parts = append(parts, a.Name+"="+a.Slot.(fmt.Stringer).String())
	}
	return t.Name() + "(" + strings.Join(parts, ", ") + ")"
}
