package schema

import (
	"reflect"
	"slices"
	"strings"

	"github.com/teranos/rowdb/errors"
	"github.com/teranos/rowdb/row"
)

// Option configures a single compilation.
type Option func(*options)

type options struct {
	table       string
	indices     []Index
	constraints []Constraint
	refs        []*Schema
	rules       *Rules
}

// WithTableName overrides the table name, which defaults to the Go type name.
func WithTableName(name string) Option {
	return func(o *options) { o.table = name }
}

// WithIndex adds a secondary index. Columns may be attribute or column names.
func WithIndex(ix Index) Option {
	return func(o *options) { o.indices = append(o.indices, ix) }
}

// WithConstraint adds a table constraint.
func WithConstraint(c Constraint) Option {
	return func(o *options) { o.constraints = append(o.constraints, c) }
}

// WithReference makes s available to fk= tags.
func WithReference(s *Schema) Option {
	return func(o *options) { o.refs = append(o.refs, s) }
}

// WithRules replaces the compiler's rule list for this compilation.
func WithRules(r Rules) Option {
	return func(o *options) { o.rules = &r }
}

// Compiler compiles row types against a fixed rule list and a set of known
// schemas. It holds no mutable state and is safe for concurrent use.
type Compiler struct {
	rules Rules
	refs  []*Schema
}

// NewCompiler returns a compiler using rules and resolving fk= tags against refs.
func NewCompiler(rules Rules, refs ...*Schema) *Compiler {
	return &Compiler{rules: rules, refs: slices.Clone(refs)}
}

var defaultCompiler = NewCompiler(DefaultRules())

// Compile compiles T with the default rules.
func Compile[T any](opts ...Option) (*Schema, error) {
	return defaultCompiler.Compile(reflect.TypeFor[T](), opts...)
}

// MustCompile is Compile for package-level schema variables.
func MustCompile[T any](opts ...Option) *Schema {
	s, err := Compile[T](opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// CompileType compiles t with the default rules.
func CompileType(t reflect.Type, opts ...Option) (*Schema, error) {
	return defaultCompiler.Compile(t, opts...)
}

// Compile builds the schema of row type t.
func (c *Compiler) Compile(t reflect.Type, opts ...Option) (*Schema, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	rules := c.rules
	if o.rules != nil {
		rules = *o.rules
	}

	if t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if !row.IsRecordType(t) {
		return nil, errors.WithHint(
			errors.Wrapf(errors.ErrInvalidRowType, "%v", t),
			"row types are structs embedding row.Model")
	}

	name := o.table
	if name == "" {
		name = t.Name()
	}
	if name == "" {
		return nil, errors.Wrapf(errors.ErrInvalidRowType, "anonymous struct %s needs schema.WithTableName", t)
	}

	refs := &resolver{self: name, refs: append(slices.Clone(c.refs), o.refs...)}
	var cols []Column
	seen := make(map[string]string)
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() || row.IsModel(f) {
			continue
		}
		args, err := ParseTag(f.Tag.Get(TagKey))
		if err != nil {
			return nil, errors.Wrapf(err, "%s.%s", t.Name(), f.Name)
		}
		if args.Skip {
			continue
		}
		if !row.IsSlotType(f.Type) {
			return nil, errors.WithHintf(
				errors.Wrapf(errors.ErrInvalidRowType, "%s.%s is %s, not a row.Field", t.Name(), f.Name, f.Type),
				"declare it as row.Field[%s] or tag it db:\"-\"", f.Type)
		}

		hint := reflect.New(f.Type).Interface().(row.Slot).Type()
		col, err := Describe(FieldDef{Attr: f.Name, Hint: hint, Index: i, Args: args}, rules, refs)
		if err != nil {
			return nil, errors.Wrapf(err, "table %s", name)
		}
		if prev, dup := seen[col.Name]; dup {
			return nil, errors.Wrapf(errors.ErrDuplicateColumn, "table %s: %s and %s both map to column %q", name, prev, f.Name, col.Name)
		}
		seen[col.Name] = f.Name
		cols = append(cols, col)
		refs.cols = cols
	}

	slices.SortStableFunc(cols, func(a, b Column) int {
		switch {
		case less(a, b):
			return -1
		case less(b, a):
			return 1
		}
		return 0
	})

	if err := validateKeys(name, cols); err != nil {
		return nil, err
	}

	lookup := newSchema(name, t, cols, nil, nil)
	indices := make([]Index, 0, len(o.indices))
	for _, ix := range o.indices {
		names, err := resolveColumns(lookup, ix.Columns)
		if err != nil {
			return nil, errors.Wrapf(err, "table %s: index %s", name, ix.Name)
		}
		if ix.Name == "" {
			ix.Name = "ix_" + name + "_" + strings.Join(names, "_")
		}
		indices = append(indices, Index{Name: ix.Name, Columns: names, Unique: ix.Unique})
	}
	constraints := make([]Constraint, 0, len(o.constraints))
	for _, con := range o.constraints {
		if con.Kind == ConstraintUnique {
			names, err := resolveColumns(lookup, con.Columns)
			if err != nil {
				return nil, errors.Wrapf(err, "table %s: constraint %s", name, con.Name)
			}
			con.Columns = names
		}
		constraints = append(constraints, con)
	}

	return newSchema(name, t, cols, indices, constraints), nil
}

func validateKeys(table string, cols []Column) error {
	var pk []Column
	for _, c := range cols {
		if c.PrimaryKey {
			pk = append(pk, c)
		}
	}
	for _, c := range cols {
		if !c.AutoIncrement {
			continue
		}
		if !c.PrimaryKey || len(pk) != 1 {
			return errors.Wrapf(errors.ErrInvalidRowType, "table %s: autoincrement on %s needs it to be the only primary key", table, c.Name)
		}
		if c.Type.Kind != KindInteger {
			return errors.Wrapf(errors.ErrInvalidRowType, "table %s: autoincrement on %s needs an integer column, got %s", table, c.Name, c.Type.Name)
		}
	}
	return nil
}

func resolveColumns(s *Schema, names []string) ([]string, error) {
	if len(names) == 0 {
		return nil, errors.Wrap(errors.ErrUnknownColumn, "no columns given")
	}
	out := make([]string, len(names))
	for i, n := range names {
		if c, ok := s.Column(n); ok {
			out[i] = c.Name
			continue
		}
		if c, ok := s.ColumnByAttr(n); ok {
			out[i] = c.Name
			continue
		}
		return nil, errors.Wrapf(errors.ErrUnknownColumn, "%q", n)
	}
	return out, nil
}

// resolver answers fk= lookups from registered schemas and from the
// columns of the table being compiled, so self references work when the
// target is declared first.
type resolver struct {
	self string
	cols []Column
	refs []*Schema
}

func (r *resolver) LookupColumn(table, column string) (Column, bool) {
	if strings.EqualFold(table, r.self) {
		for _, c := range r.cols {
			if c.Name == column {
				return c, true
			}
		}
	}
	for _, s := range r.refs {
		if c, ok := s.LookupColumn(table, column); ok {
			return c, true
		}
	}
	return Column{}, false
}
