package marshal

import (
	"database/sql/driver"
	"encoding"
	"encoding/json"
	"math"
	"reflect"
	"time"

	"github.com/teranos/rowdb/errors"
	"github.com/teranos/rowdb/schema"
)

var (
	rawJSON   = reflect.TypeFor[json.RawMessage]()
	bytesType = reflect.TypeFor[[]byte]()
	timeType  = reflect.TypeFor[time.Time]()
)

// Encode converts a field value into the driver value stored in col.
// File-backed columns are not handled here; their stored value is the file
// reference.
func Encode(col schema.Column, v any) (any, error) {
	if isNil(v) {
		return nil, nil
	}

	if col.Type.Kind == schema.KindJSON {
		return encodeJSON(col, v)
	}

	if valuer, ok := v.(driver.Valuer); ok {
		out, err := valuer.Value()
		if err != nil {
			return nil, errors.Wrapf(errors.ErrConversion, "column %s: %v", col.Name, err)
		}
		return out, nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
		v = rv.Interface()
		if valuer, ok := v.(driver.Valuer); ok {
			return Encode(col, valuer)
		}
	}

	if rv.Type() == timeType {
		return v, nil
	}

	switch col.Type.Kind {
	case schema.KindBool:
		switch rv.Kind() {
		case reflect.Bool:
			return rv.Bool(), nil
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return rv.Int() != 0, nil
		}
	case schema.KindText:
		if tm, ok := v.(encoding.TextMarshaler); ok && rv.Kind() != reflect.String {
			text, err := tm.MarshalText()
			if err != nil {
				return nil, errors.Wrapf(errors.ErrConversion, "column %s: %v", col.Name, err)
			}
			return string(text), nil
		}
		if rv.Type() == bytesType {
			return string(rv.Bytes()), nil
		}
	case schema.KindBlob:
		if rv.Kind() == reflect.String {
			return []byte(rv.String()), nil
		}
	case schema.KindReal:
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return float64(rv.Int()), nil
		}
	}

	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return nil, errors.Wrapf(errors.ErrConversion, "column %s: %d overflows int64", col.Name, u)
		}
		return int64(u), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.String:
		return rv.String(), nil
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return rv.Bytes(), nil
		}
	}
	return nil, errors.Wrapf(errors.ErrConversion, "column %s (%s): cannot store %T", col.Name, col.Type.Name, v)
}

func encodeJSON(col schema.Column, v any) (any, error) {
	switch x := v.(type) {
	case json.RawMessage:
		return string(x), nil
	case []byte:
		return string(x), nil
	case string:
		return x, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrConversion, "column %s: %v", col.Name, err)
	}
	return string(b), nil
}

// Decode converts a driver value read from col into something the column's
// Field can Assign. Only JSON columns need real work; everything else is
// converted by the Field itself.
func Decode(col schema.Column, v any) (any, error) {
	if v == nil || col.Type.Kind != schema.KindJSON || col.Hint == nil {
		return v, nil
	}
	hint := col.Hint
	base := hint
	if base.Kind() == reflect.Pointer {
		base = base.Elem()
	}
	if base == rawJSON || base == bytesType || base.Kind() == reflect.String {
		return v, nil
	}

	var data []byte
	switch x := v.(type) {
	case string:
		data = []byte(x)
	case []byte:
		data = x
	default:
		return nil, errors.Wrapf(errors.ErrConversion, "column %s: JSON from %T", col.Name, v)
	}
	dst := reflect.New(hint)
	if err := json.Unmarshal(data, dst.Interface()); err != nil {
		return nil, errors.Wrapf(errors.ErrConversion, "column %s: %v", col.Name, err)
	}
	return dst.Elem().Interface(), nil
}

// EncodeValues encodes every non-file column of values in place.
func EncodeValues(s *schema.Schema, values map[string]any) error {
	for name, v := range values {
		col, ok := s.Column(name)
		if !ok {
			return errors.Wrapf(errors.ErrUnknownColumn, "table %s has no column %q", s.Name(), name)
		}
		if col.FileBacked() {
			continue
		}
		enc, err := Encode(col, v)
		if err != nil {
			return errors.Wrapf(err, "table %s", s.Name())
		}
		values[name] = enc
	}
	return nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
