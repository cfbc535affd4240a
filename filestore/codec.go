package filestore

import (
	"encoding/json"
	"reflect"

	"github.com/fxamacker/cbor/v2"

	"github.com/teranos/rowdb/errors"
	"github.com/teranos/rowdb/schema"
)

// Codec serializes column values into file payloads.
type Codec interface {
	Name() string
	// Ext is the file extension, dot included.
	Ext() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, dst any) error
}

// CodecFor returns the codec registered under name.
func CodecFor(name string) (Codec, error) {
	switch name {
	case schema.CodecJSON, "":
		return JSONCodec{}, nil
	case schema.CodecCBOR:
		return CBORCodec{}, nil
	case schema.CodecRaw:
		return RawCodec{}, nil
	}
	return nil, errors.Newf("unknown codec %q", name)
}

// JSONCodec stores payloads as JSON documents.
type JSONCodec struct{}

func (JSONCodec) Name() string { return schema.CodecJSON }
func (JSONCodec) Ext() string  { return ".json" }

func (JSONCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONCodec) Unmarshal(data []byte, dst any) error {
	return json.Unmarshal(data, dst)
}

// CBORCodec stores payloads as CBOR (RFC 8949), which keeps []byte and
// integer widths intact where JSON would not.
type CBORCodec struct{}

func (CBORCodec) Name() string { return schema.CodecCBOR }
func (CBORCodec) Ext() string  { return ".cbor" }

func (CBORCodec) Marshal(v any) ([]byte, error) {
	return cbor.Marshal(v)
}

func (CBORCodec) Unmarshal(data []byte, dst any) error {
	return cbor.Unmarshal(data, dst)
}

// RawCodec writes []byte and string values verbatim.
type RawCodec struct{}

func (RawCodec) Name() string { return schema.CodecRaw }
func (RawCodec) Ext() string  { return ".bin" }

func (RawCodec) Marshal(v any) ([]byte, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	switch {
	case rv.Kind() == reflect.String:
		return []byte(rv.String()), nil
	case rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8:
		return append([]byte(nil), rv.Bytes()...), nil
	}
	return nil, errors.Newf("raw codec cannot store %T", v)
}

func (RawCodec) Unmarshal(data []byte, dst any) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return errors.Newf("raw codec needs a non-nil pointer, got %T", dst)
	}
	el := rv.Elem()
	switch {
	case el.Kind() == reflect.String:
		el.SetString(string(data))
	case el.Kind() == reflect.Slice && el.Type().Elem().Kind() == reflect.Uint8:
		el.SetBytes(append([]byte(nil), data...))
	case el.Kind() == reflect.Interface && el.NumMethod() == 0:
		el.Set(reflect.ValueOf(append([]byte(nil), data...)))
	default:
		return errors.Newf("raw codec cannot load into %T", dst)
	}
	return nil
}
