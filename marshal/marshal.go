// Package marshal converts between row instances and persisted mappings.
//
// A mapping produced here never contains unfetched fields: a Field that was
// not set is simply absent. Reading works the other way round, columns
// absent from a mapping leave the corresponding Field unfetched.
package marshal

import (
	"reflect"

	"github.com/teranos/rowdb/errors"
	"github.com/teranos/rowdb/row"
	"github.com/teranos/rowdb/schema"
)

// ToMapping returns the present fields of r keyed by column name. Values are
// the Go values held by the fields; Encode turns them into driver values.
// r must be a value of, or pointer to, the schema's row type.
func ToMapping(s *schema.Schema, r any) (row.Values, error) {
	if err := checkType(s, reflect.TypeOf(r)); err != nil {
		return nil, err
	}
	attrs, err := row.Attrs(r)
	if err != nil {
		return nil, errors.Wrapf(err, "table %s", s.Name())
	}
	values := make(row.Values, len(attrs))
	for _, a := range attrs {
		v, ok := a.Slot.Value()
		if !ok {
			continue
		}
		col, found := s.ColumnByAttr(a.Name)
		if !found {
			continue
		}
		values[col.Name] = v
	}
	return values, nil
}

// FromMapping builds a new T from persisted values.
func FromMapping[T any](s *schema.Schema, values row.Values) (*T, error) {
	dst := new(T)
	if err := FromMappingInto(s, dst, values); err != nil {
		return nil, err
	}
	return dst, nil
}

// FromMappingInto fills dst, a pointer to the schema's row type. Every Field
// is reset first, so columns absent from values end up unfetched.
func FromMappingInto(s *schema.Schema, dst any, values row.Values) error {
	t := reflect.TypeOf(dst)
	if t == nil || t.Kind() != reflect.Pointer {
		return errors.Wrapf(errors.ErrConversion, "table %s: destination %T is not a pointer", s.Name(), dst)
	}
	if err := checkType(s, t); err != nil {
		return err
	}
	v := reflect.ValueOf(dst)
	if v.IsNil() {
		return errors.Wrapf(errors.ErrConversion, "table %s: nil destination", s.Name())
	}
	v = v.Elem()

	for _, col := range s.Columns() {
		row.SlotOf(v, col.Index).Clear()
	}
	for name, raw := range values {
		col, ok := s.Column(name)
		if !ok {
			return errors.Wrapf(errors.ErrUnknownColumn, "table %s has no column %q", s.Name(), name)
		}
		decoded, err := Decode(col, raw)
		if err != nil {
			return errors.Wrapf(err, "table %s", s.Name())
		}
		if err := row.SlotOf(v, col.Index).Assign(decoded); err != nil {
			return errors.Wrapf(err, "table %s: column %s", s.Name(), name)
		}
	}
	return nil
}

// Check reports whether r can be marshaled with s.
func Check(s *schema.Schema, r any) error {
	return checkType(s, reflect.TypeOf(r))
}

func checkType(s *schema.Schema, t reflect.Type) error {
	want := s.RowType()
	if want == nil {
		return errors.WithHint(
			errors.Wrapf(errors.ErrConversion, "table %s was reflected and has no row type", s.Name()),
			"use the Raw operations")
	}
	if t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t != want {
		return errors.Wrapf(errors.ErrConversion, "table %s holds %s, got %v", s.Name(), want, t)
	}
	return nil
}
