package table

import (
	"context"
	"reflect"

	"github.com/teranos/rowdb/errors"
	"github.com/teranos/rowdb/logger"
	"github.com/teranos/rowdb/marshal"
	"github.com/teranos/rowdb/query"
	"github.com/teranos/rowdb/row"
)

// InsertOption adjusts a single insert call.
type InsertOption func(*query.Insert)

// OnConflict sets the conflict policy. The default is ConflictFail.
func OnConflict(c query.Conflict) InsertOption {
	return func(p *query.Insert) { p.Conflict = c }
}

// InsertSingle inserts one row instance. Unfetched fields are left to the
// column defaults.
func (h *Handle) InsertSingle(ctx context.Context, r any, opts ...InsertOption) (query.Result, error) {
	if err := h.checkWritable("insert"); err != nil {
		return query.Result{}, err
	}
	if isSequence(r) {
		return query.Result{}, errors.WithHint(
			errors.Wrapf(errors.ErrShapeMismatch, "table %s: InsertSingle got %T", h.Name(), r),
			"use InsertMulti for a list of rows")
	}
	return h.insertObjects(ctx, []any{r}, opts)
}

// InsertMulti inserts a slice of row instances. An empty slice is a no-op.
func (h *Handle) InsertMulti(ctx context.Context, rows any, opts ...InsertOption) (query.Result, error) {
	if err := h.checkWritable("insert"); err != nil {
		return query.Result{}, err
	}
	if !isSequence(rows) {
		return query.Result{}, errors.WithHint(
			errors.Wrapf(errors.ErrShapeMismatch, "table %s: InsertMulti got %T", h.Name(), rows),
			"use InsertSingle for one row")
	}
	v := reflect.ValueOf(rows)
	items := make([]any, v.Len())
	for i := range items {
		items[i] = v.Index(i).Interface()
	}
	return h.insertObjects(ctx, items, opts)
}

// InsertSingleRaw inserts one persisted mapping as is. An empty mapping
// inserts a row of defaults.
func (h *Handle) InsertSingleRaw(ctx context.Context, values row.Values, opts ...InsertOption) (query.Result, error) {
	if err := h.checkWritable("insert"); err != nil {
		return query.Result{}, err
	}
	return h.insertRaw(ctx, []row.Values{values}, opts)
}

// InsertMultiRaw inserts persisted mappings as is.
func (h *Handle) InsertMultiRaw(ctx context.Context, rows []row.Values, opts ...InsertOption) (query.Result, error) {
	if err := h.checkWritable("insert"); err != nil {
		return query.Result{}, err
	}
	return h.insertRaw(ctx, rows, opts)
}

func (h *Handle) insertRaw(ctx context.Context, rows []row.Values, opts []InsertOption) (query.Result, error) {
	if len(rows) == 0 {
		return query.Result{}, nil
	}
	for _, r := range rows {
		if err := h.checkColumns(r); err != nil {
			return query.Result{}, err
		}
	}
	res, _, err := h.execInsert(ctx, rows, opts)
	return res, err
}

func (h *Handle) insertObjects(ctx context.Context, items []any, opts []InsertOption) (query.Result, error) {
	if len(items) == 0 {
		return query.Result{}, nil
	}
	rows := make([]row.Values, len(items))
	for i, it := range items {
		values, err := marshal.ToMapping(h.schema, it)
		if err != nil {
			return query.Result{}, errors.Wrapf(err, "row %d", i)
		}
		rows[i] = values
	}

	stored, err := h.storeFiles(rows)
	if err != nil {
		return query.Result{}, err
	}
	for _, r := range rows {
		if err := marshal.EncodeValues(h.schema, r); err != nil {
			return query.Result{}, errors.CombineErrors(err, h.discardFiles(stored))
		}
	}

	res, applied, err := h.execInsert(ctx, rows, opts)
	if err != nil {
		return res, errors.CombineErrors(err, h.discardFiles(unreferenced(stored, applied)))
	}
	return res, nil
}

// execInsert also returns the statements whose rows remain after a failure.
// On a connection that can begin transactions that is none of them.
func (h *Handle) execInsert(ctx context.Context, rows []row.Values, opts []InsertOption) (query.Result, []query.Statement, error) {
	plan := query.Insert{Table: h.Name(), Rows: rows, MaxParams: h.maxParams}
	for _, opt := range opts {
		opt(&plan)
	}
	stmts, err := plan.Build()
	if err != nil {
		return query.Result{}, nil, err
	}
	res, applied, err := h.exec().ExecAtomic(ctx, stmts...)
	if err != nil {
		return res, stmts[:applied], errors.Wrapf(err, "insert into %s", h.Name())
	}
	h.log.Debugw("Inserted rows",
		logger.FieldCount, res.RowsAffected,
		logger.FieldConflict, plan.Conflict.String())
	return res, stmts, nil
}

// unreferenced drops the files that applied statements still point at.
func unreferenced(stored []storedFile, applied []query.Statement) []storedFile {
	if len(applied) == 0 {
		return stored
	}
	live := map[string]bool{}
	for _, st := range applied {
		for _, a := range st.Args {
			if ref, ok := a.(string); ok {
				live[ref] = true
			}
		}
	}
	var out []storedFile
	for _, f := range stored {
		if !live[f.ref] {
			out = append(out, f)
		}
	}
	return out
}

func (h *Handle) checkColumns(values row.Values) error {
	for name := range values {
		if _, ok := h.schema.Column(name); !ok {
			return errors.WithHintf(
				errors.Wrapf(errors.ErrUnknownColumn, "table %s has no column %q", h.Name(), name),
				"columns: %v", h.schema.ColumnNames())
		}
	}
	return nil
}

func isSequence(v any) bool {
	if v == nil {
		return false
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Slice, reflect.Array:
		return true
	}
	return false
}
