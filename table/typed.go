package table

import (
	"context"

	"github.com/teranos/rowdb/marshal"
	"github.com/teranos/rowdb/query"
)

// Table is a typed view of a Handle whose schema was compiled from T.
type Table[T any] struct {
	h *Handle
}

// Of binds a typed view to h. The schema's row type must be T.
func Of[T any](h *Handle) (*Table[T], error) {
	if err := marshal.Check(h.schema, (*T)(nil)); err != nil {
		return nil, err
	}
	return &Table[T]{h: h}, nil
}

// Handle returns the untyped handle.
func (t *Table[T]) Handle() *Handle { return t.h }

func (t *Table[T]) InsertSingle(ctx context.Context, r *T, opts ...InsertOption) (query.Result, error) {
	return t.h.InsertSingle(ctx, r, opts...)
}

func (t *Table[T]) InsertMulti(ctx context.Context, rows []*T, opts ...InsertOption) (query.Result, error) {
	return t.h.InsertMulti(ctx, rows, opts...)
}

func (t *Table[T]) Select(ctx context.Context, q Query) ([]*T, error) {
	rows, err := t.h.Select(ctx, q)
	if err != nil {
		return nil, err
	}
	out := make([]*T, len(rows))
	for i, r := range rows {
		out[i] = r.(*T)
	}
	return out, nil
}

func (t *Table[T]) SelectFirst(ctx context.Context, q Query) (*T, error) {
	r, err := t.h.SelectFirst(ctx, q)
	if err != nil {
		return nil, err
	}
	return r.(*T), nil
}

func (t *Table[T]) Count(ctx context.Context, where query.Predicate) (int64, error) {
	return t.h.Count(ctx, where)
}

// Update writes the present fields of r to the rows in scope.
func (t *Table[T]) Update(ctx context.Context, r *T, scope Scope) (query.Result, error) {
	return t.h.Update(ctx, r, scope)
}

func (t *Table[T]) Delete(ctx context.Context, scope Scope) (query.Result, error) {
	return t.h.Delete(ctx, scope)
}
