package table

import (
	"context"

	"github.com/teranos/rowdb/errors"
	"github.com/teranos/rowdb/logger"
	"github.com/teranos/rowdb/marshal"
	"github.com/teranos/rowdb/query"
	"github.com/teranos/rowdb/row"
)

// Scope selects the rows a mutation touches. A mutation without a predicate
// fails unless All is set.
type Scope struct {
	Where    query.Predicate
	All      bool
	Conflict query.Conflict
}

// All scopes a mutation to every row.
func All() Scope { return Scope{All: true} }

// Matching scopes a mutation to the rows matching where.
func Matching(sql string, args ...any) Scope {
	return Scope{Where: query.Where(sql, args...)}
}

// Update sets columns on the rows in scope. values is either a row.Values
// of persisted values or a row instance whose present fields are written.
// Nothing to set is a no-op.
func (h *Handle) Update(ctx context.Context, values any, scope Scope) (query.Result, error) {
	if err := h.checkWritable("update"); err != nil {
		return query.Result{}, err
	}
	if err := query.CheckScope("update", h.Name(), scope.Where, scope.All); err != nil {
		return query.Result{}, err
	}

	var (
		set    row.Values
		stored []storedFile
		err    error
	)
	switch v := values.(type) {
	case row.Values:
		if err := h.checkColumns(v); err != nil {
			return query.Result{}, err
		}
		set = v
	case map[string]any:
		if err := h.checkColumns(v); err != nil {
			return query.Result{}, err
		}
		set = v
	default:
		if isSequence(values) {
			return query.Result{}, errors.Wrapf(errors.ErrShapeMismatch, "table %s: Update got %T", h.Name(), values)
		}
		if set, err = marshal.ToMapping(h.schema, values); err != nil {
			return query.Result{}, err
		}
		if len(set) == 0 {
			return query.Result{}, nil
		}
		if stored, err = h.storeFiles([]row.Values{set}); err != nil {
			return query.Result{}, err
		}
		if err := marshal.EncodeValues(h.schema, set); err != nil {
			return query.Result{}, errors.CombineErrors(err, h.discardFiles(stored))
		}
	}
	if len(set) == 0 {
		return query.Result{}, nil
	}

	st, err := query.Update{
		Table:    h.Name(),
		Set:      set,
		Where:    scope.Where,
		All:      scope.All,
		Conflict: scope.Conflict,
	}.Build()
	if err != nil {
		return query.Result{}, errors.CombineErrors(err, h.discardFiles(stored))
	}
	res, err := h.exec().Exec(ctx, st)
	if err != nil {
		return res, errors.CombineErrors(errors.Wrapf(err, "update %s", h.Name()), h.discardFiles(stored))
	}
	h.log.Debugw("Updated rows", logger.FieldCount, res.RowsAffected, logger.FieldConflict, scope.Conflict.String())
	return res, nil
}

// Delete removes the rows in scope. Their files stay until the next
// ReconcileFileColumn.
func (h *Handle) Delete(ctx context.Context, scope Scope) (query.Result, error) {
	if err := h.checkWritable("delete"); err != nil {
		return query.Result{}, err
	}
	st, err := query.Delete{Table: h.Name(), Where: scope.Where, All: scope.All}.Build()
	if err != nil {
		return query.Result{}, err
	}
	res, err := h.exec().Exec(ctx, st)
	if err != nil {
		return res, errors.Wrapf(err, "delete from %s", h.Name())
	}
	h.log.Debugw("Deleted rows", logger.FieldCount, res.RowsAffected)
	return res, nil
}
