package schema

import (
	"math"
	"reflect"
	"strings"

	"github.com/iancoleman/strcase"

	"github.com/teranos/rowdb/errors"
)

// Codec names accepted by the codec= tag option.
const (
	CodecJSON = "json"
	CodecCBOR = "cbor"
	CodecRaw  = "raw"
)

// FieldDef is one declared field handed to Describe.
type FieldDef struct {
	Attr  string
	Hint  reflect.Type
	Index int
	Args  ColumnArgs
}

// ForeignKey names the column a column references.
type ForeignKey struct {
	Table    string `json:"table" yaml:"table"`
	Column   string `json:"column" yaml:"column"`
	OnDelete string `json:"on_delete,omitempty" yaml:"on_delete,omitempty"`
}

// FileSpec marks a column whose values live in files. The column itself
// stores the file reference as TEXT.
type FileSpec struct {
	Folder string `json:"folder" yaml:"folder"`
	Codec  string `json:"codec" yaml:"codec"`
}

// Column describes one column of a table.
type Column struct {
	Attr          string       `json:"attr,omitempty" yaml:"attr,omitempty"`
	Name          string       `json:"name" yaml:"name"`
	Type          StorageType  `json:"type" yaml:"type"`
	Hint          reflect.Type `json:"-" yaml:"-"`
	Index         int          `json:"-" yaml:"-"`
	Order         int          `json:"-" yaml:"-"`
	Nullable      bool         `json:"nullable" yaml:"nullable"`
	Unique        bool         `json:"unique,omitempty" yaml:"unique,omitempty"`
	PrimaryKey    bool         `json:"primary_key,omitempty" yaml:"primary_key,omitempty"`
	AutoIncrement bool         `json:"autoincrement,omitempty" yaml:"autoincrement,omitempty"`
	Default       string       `json:"default,omitempty" yaml:"default,omitempty"`
	HasDefault    bool         `json:"-" yaml:"-"`
	ForeignKey    *ForeignKey  `json:"foreign_key,omitempty" yaml:"foreign_key,omitempty"`
	Files         *FileSpec    `json:"files,omitempty" yaml:"files,omitempty"`
}

// clone copies c without sharing its foreign key or file spec.
func (c Column) clone() Column {
	if c.ForeignKey != nil {
		fk := *c.ForeignKey
		c.ForeignKey = &fk
	}
	if c.Files != nil {
		fs := *c.Files
		c.Files = &fs
	}
	return c
}

// FileBacked reports whether the column stores file references.
func (c Column) FileBacked() bool { return c.Files != nil }

// Resolver looks up a column of a known table, for fk= type inference.
type Resolver interface {
	LookupColumn(table, column string) (Column, bool)
}

// Describe builds the column for one field. The storage type is decided in
// this order: an explicit type (which must not carry construction
// arguments), the referenced column's type for foreign keys, then rules.
func Describe(f FieldDef, rules Rules, refs Resolver) (Column, error) {
	args := f.Args
	col := Column{
		Attr:          f.Attr,
		Name:          args.Name,
		Hint:          f.Hint,
		Index:         f.Index,
		Order:         math.MaxInt,
		Unique:        args.Unique,
		PrimaryKey:    args.PrimaryKey,
		AutoIncrement: args.AutoIncrement,
		Default:       args.Default,
		HasDefault:    args.HasDefault,
	}
	if col.Name == "" {
		col.Name = strcase.ToSnake(f.Attr)
	}
	if args.HasOrder {
		col.Order = args.Order
	}

	hint := f.Hint
	nullable := false
	if hint != nil {
		switch hint.Kind() {
		case reflect.Pointer:
			nullable = true
			hint = hint.Elem()
		case reflect.Slice, reflect.Map, reflect.Interface:
			nullable = true
		}
	}
	col.Nullable = nullable && !args.NotNull && !args.PrimaryKey

	if args.Type != "" && (args.Constructed() || args.Files != "") {
		return Column{}, errors.WithHintf(
			errors.Wrapf(errors.ErrAmbiguousColumnType, "column %s: type=%s given with construction arguments", col.Name, args.Type),
			"put the size or collation in the type text, e.g. type=%s(%d)", args.Type, max(args.Size, 1))
	}

	switch {
	case args.Type != "":
		col.Type = ParseStorageType(args.Type)

	case args.Files != "":
		codec := args.Codec
		if codec == "" {
			codec = CodecJSON
		}
		switch codec {
		case CodecJSON, CodecCBOR, CodecRaw:
		default:
			return Column{}, errors.Wrapf(errors.ErrInvalidRowType, "column %s: unknown codec %q", col.Name, codec)
		}
		col.Type = Text
		col.Files = &FileSpec{Folder: args.Files, Codec: codec}

	case args.References != "":
		table, column, _ := strings.Cut(args.References, ".")
		var target Column
		ok := false
		if refs != nil {
			target, ok = refs.LookupColumn(table, column)
		}
		if !ok {
			return Column{}, errors.WithHint(
				errors.Wrapf(errors.ErrUnknownReference, "column %s references %s", col.Name, args.References),
				"register the referenced schema with schema.WithReference")
		}
		col.Type = target.Type.Construct(args.Size, args.Collate)

	default:
		if hint == nil {
			return Column{}, errors.Wrapf(errors.ErrUnresolvedColumnType, "column %s has no type hint", col.Name)
		}
		st, ok := rules.Resolve(hint)
		if !ok {
			return Column{}, errors.WithDetailf(
				errors.Wrapf(errors.ErrUnresolvedColumnType, "column %s: no rule for %s", col.Name, hint),
				"supported: %s", rules.Supported())
		}
		col.Type = st.Construct(args.Size, args.Collate)
	}

	if args.Codec != "" && args.Files == "" {
		return Column{}, errors.Wrapf(errors.ErrInvalidRowType, "column %s: codec= needs files=", col.Name)
	}

	if args.References != "" {
		table, column, _ := strings.Cut(args.References, ".")
		col.ForeignKey = &ForeignKey{Table: table, Column: column, OnDelete: args.OnDelete}
	} else if args.OnDelete != "" {
		return Column{}, errors.Wrapf(errors.ErrInvalidRowType, "column %s: ondelete= needs fk=", col.Name)
	}
	return col, nil
}

// less orders columns by explicit order, then declaration index.
func less(a, b Column) bool {
	if a.Order != b.Order {
		return a.Order < b.Order
	}
	return a.Index < b.Index
}
