// Package schema turns row types into immutable table schemas.
//
// A schema is a pure function of a row type and the options it is compiled
// with. Compiling never touches the database.
package schema

import (
	"reflect"
	"strings"
)

// Index is a secondary index over one or more columns.
type Index struct {
	Name    string   `json:"name" yaml:"name"`
	Columns []string `json:"columns" yaml:"columns"`
	Unique  bool     `json:"unique,omitempty" yaml:"unique,omitempty"`
}

// ConstraintKind distinguishes table constraints.
type ConstraintKind int

const (
	ConstraintUnique ConstraintKind = iota
	ConstraintCheck
)

func (k ConstraintKind) String() string {
	if k == ConstraintCheck {
		return "check"
	}
	return "unique"
}

// Constraint is a table-level UNIQUE or CHECK constraint.
type Constraint struct {
	Name    string         `json:"name" yaml:"name"`
	Kind    ConstraintKind `json:"kind" yaml:"kind"`
	Columns []string       `json:"columns,omitempty" yaml:"columns,omitempty"`
	Expr    string         `json:"expr,omitempty" yaml:"expr,omitempty"`
}

// Unique builds a UNIQUE constraint over cols (attribute or column names).
func Unique(name string, cols ...string) Constraint {
	return Constraint{Name: name, Kind: ConstraintUnique, Columns: cols}
}

// Check builds a CHECK constraint. expr is SQL text used verbatim.
func Check(name, expr string) Constraint {
	return Constraint{Name: name, Kind: ConstraintCheck, Expr: expr}
}

// Schema is the compiled description of a table. Treat it as read-only;
// accessors hand out copies.
type Schema struct {
	name        string
	rowType     reflect.Type
	columns     []Column
	indices     []Index
	constraints []Constraint
	byAttr      map[string]int
	byColumn    map[string]int
}

func newSchema(name string, rowType reflect.Type, cols []Column, indices []Index, constraints []Constraint) *Schema {
	s := &Schema{
		name:        name,
		rowType:     rowType,
		columns:     cols,
		indices:     indices,
		constraints: constraints,
		byAttr:      make(map[string]int, len(cols)),
		byColumn:    make(map[string]int, len(cols)),
	}
	for i, c := range cols {
		if c.Attr != "" {
			s.byAttr[c.Attr] = i
		}
		s.byColumn[c.Name] = i
	}
	return s
}

// Name returns the table name.
func (s *Schema) Name() string { return s.name }

// RowType returns the row struct type, or nil for schemas reflected from a
// live table.
func (s *Schema) RowType() reflect.Type { return s.rowType }

// Reflected reports whether the schema came from a live table rather than a
// row type.
func (s *Schema) Reflected() bool { return s.rowType == nil }

// Columns returns the columns in table order.
func (s *Schema) Columns() []Column {
	out := make([]Column, len(s.columns))
	for i, c := range s.columns {
		out[i] = c.clone()
	}
	return out
}

// ColumnNames returns the column names in table order.
func (s *Schema) ColumnNames() []string {
	names := make([]string, len(s.columns))
	for i, c := range s.columns {
		names[i] = c.Name
	}
	return names
}

// Column looks a column up by column name.
func (s *Schema) Column(name string) (Column, bool) {
	i, ok := s.byColumn[name]
	if !ok {
		return Column{}, false
	}
	return s.columns[i].clone(), true
}

// ColumnByAttr looks a column up by attribute name.
func (s *Schema) ColumnByAttr(attr string) (Column, bool) {
	i, ok := s.byAttr[attr]
	if !ok {
		return Column{}, false
	}
	return s.columns[i].clone(), true
}

// AttrToColumn maps attribute names to column names.
func (s *Schema) AttrToColumn() map[string]string {
	m := make(map[string]string, len(s.byAttr))
	for attr, i := range s.byAttr {
		m[attr] = s.columns[i].Name
	}
	return m
}

// ColumnToAttr maps column names to attribute names.
func (s *Schema) ColumnToAttr() map[string]string {
	m := make(map[string]string, len(s.byAttr))
	for attr, i := range s.byAttr {
		m[s.columns[i].Name] = attr
	}
	return m
}

// LookupColumn implements Resolver for a single table.
func (s *Schema) LookupColumn(table, column string) (Column, bool) {
	if !strings.EqualFold(table, s.name) {
		return Column{}, false
	}
	return s.Column(column)
}

// PrimaryKey returns the primary key columns in table order.
func (s *Schema) PrimaryKey() []Column {
	var pk []Column
	for _, c := range s.columns {
		if c.PrimaryKey {
			pk = append(pk, c)
		}
	}
	return pk
}

// FileColumns returns the file-backed columns.
func (s *Schema) FileColumns() []Column {
	var fc []Column
	for _, c := range s.columns {
		if c.FileBacked() {
			fc = append(fc, c.clone())
		}
	}
	return fc
}

// Indices returns the secondary indices.
func (s *Schema) Indices() []Index {
	out := make([]Index, len(s.indices))
	for i, ix := range s.indices {
		out[i] = Index{Name: ix.Name, Columns: append([]string(nil), ix.Columns...), Unique: ix.Unique}
	}
	return out
}

// Constraints returns the table constraints.
func (s *Schema) Constraints() []Constraint {
	out := make([]Constraint, len(s.constraints))
	for i, c := range s.constraints {
		c.Columns = append([]string(nil), c.Columns...)
		out[i] = c
	}
	return out
}

// WithFiles returns a copy of s in which column is file-backed. Reflected
// tables cannot know which TEXT columns hold file references, so callers
// declare them.
func (s *Schema) WithFiles(column string, spec FileSpec) (*Schema, bool) {
	i, ok := s.byColumn[column]
	if !ok {
		return nil, false
	}
	cols := s.Columns()
	cols[i].Files = &spec
	return newSchema(s.name, s.rowType, cols, s.Indices(), s.Constraints()), true
}
