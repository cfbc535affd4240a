package table

import (
	"context"
	"reflect"

	"github.com/teranos/rowdb/errors"
	"github.com/teranos/rowdb/marshal"
	"github.com/teranos/rowdb/query"
	"github.com/teranos/rowdb/row"
)

// Query describes a read. Columns may be given by column or attribute name;
// none means every column of the handle's schema. OrderBy and GroupBy are SQL text.
type Query struct {
	Columns  []string
	Where    query.Predicate
	OrderBy  []string
	GroupBy  []string
	Limit    int
	Offset   int
	Distinct bool
}

func (h *Handle) plan(q Query) (query.Select, error) {
	if len(q.Columns) == 0 {
		q.Columns = h.schema.ColumnNames()
	}
	cols := make([]string, 0, len(q.Columns))
	for _, name := range q.Columns {
		if c, ok := h.schema.Column(name); ok {
			cols = append(cols, c.Name)
			continue
		}
		if c, ok := h.schema.ColumnByAttr(name); ok {
			cols = append(cols, c.Name)
			continue
		}
		return query.Select{}, errors.WithHintf(
			errors.Wrapf(errors.ErrUnknownColumn, "table %s has no column %q", h.Name(), name),
			"columns: %v", h.schema.ColumnNames())
	}
	return query.Select{
		Table:    h.Name(),
		Columns:  cols,
		Where:    q.Where,
		OrderBy:  q.OrderBy,
		GroupBy:  q.GroupBy,
		Limit:    q.Limit,
		Offset:   q.Offset,
		Distinct: q.Distinct,
	}, nil
}

// SelectRaw returns matching rows as persisted mappings. File-backed columns
// hold their references.
func (h *Handle) SelectRaw(ctx context.Context, q Query) ([]row.Values, error) {
	p, err := h.plan(q)
	if err != nil {
		return nil, err
	}
	st, err := p.Build()
	if err != nil {
		return nil, err
	}
	_, rows, err := h.exec().Query(ctx, st)
	if err != nil {
		return nil, errors.Wrapf(err, "select from %s", h.Name())
	}
	return rows, nil
}

// SelectFirstRaw is SelectRaw limited to one row. No match is ErrNotFound.
func (h *Handle) SelectFirstRaw(ctx context.Context, q Query) (row.Values, error) {
	q.Limit = 1
	rows, err := h.SelectRaw(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, h.notFound(q)
	}
	return rows[0], nil
}

// Select returns matching rows as pointers to the row type. Columns left
// out of the query come back unfetched; file-backed columns are loaded.
func (h *Handle) Select(ctx context.Context, q Query) ([]any, error) {
	rt, err := h.rowType()
	if err != nil {
		return nil, err
	}
	raw, err := h.SelectRaw(ctx, q)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(raw))
	for i, values := range raw {
		dst := reflect.New(rt).Interface()
		if err := h.fill(dst, values); err != nil {
			return nil, err
		}
		out[i] = dst
	}
	return out, nil
}

// SelectFirst is Select limited to one row. No match is ErrNotFound, never
// a nil row.
func (h *Handle) SelectFirst(ctx context.Context, q Query) (any, error) {
	rt, err := h.rowType()
	if err != nil {
		return nil, err
	}
	values, err := h.SelectFirstRaw(ctx, q)
	if err != nil {
		return nil, err
	}
	dst := reflect.New(rt).Interface()
	if err := h.fill(dst, values); err != nil {
		return nil, err
	}
	return dst, nil
}

// Count returns the number of rows matching where.
func (h *Handle) Count(ctx context.Context, where query.Predicate) (int64, error) {
	st, err := query.Count{Table: h.Name(), Where: where}.Build()
	if err != nil {
		return 0, err
	}
	n, err := h.exec().QueryInt(ctx, st)
	if err != nil {
		return 0, errors.Wrapf(err, "count %s", h.Name())
	}
	return n, nil
}

func (h *Handle) fill(dst any, values row.Values) error {
	if err := h.loadFiles(values); err != nil {
		return err
	}
	return marshal.FromMappingInto(h.schema, dst, values)
}

func (h *Handle) rowType() (reflect.Type, error) {
	rt := h.schema.RowType()
	if rt == nil {
		return nil, errors.WithHint(
			errors.Wrapf(errors.ErrConversion, "table %s was reflected and has no row type", h.Name()),
			"use SelectRaw")
	}
	return rt, nil
}

func (h *Handle) notFound(q Query) error {
	err := errors.Wrapf(errors.ErrNotFound, "no row in %s", h.Name())
	if !q.Where.Empty() {
		err = errors.WithDetailf(err, "where %s", q.Where.SQL)
	}
	return err
}
