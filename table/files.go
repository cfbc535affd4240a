package table

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/teranos/rowdb/errors"
	"github.com/teranos/rowdb/filestore"
	"github.com/teranos/rowdb/logger"
	"github.com/teranos/rowdb/query"
	"github.com/teranos/rowdb/row"
)

type storedFile struct {
	column string
	ref    string
}

// storeFiles replaces the payload of every file-backed column in rows with
// the reference of a freshly written file. nil payloads become NULL.
func (h *Handle) storeFiles(rows []row.Values) ([]storedFile, error) {
	if len(h.files) == 0 {
		return nil, nil
	}
	var stored []storedFile
	for _, r := range rows {
		for col, store := range h.files {
			v, ok := r[col]
			if !ok {
				continue
			}
			if isNilValue(v) {
				r[col] = nil
				continue
			}
			ref, err := store.Store(v)
			if err != nil {
				return stored, errors.CombineErrors(
					errors.Wrapf(err, "table %s: column %s", h.Name(), col),
					h.discardFiles(stored))
			}
			r[col] = ref
			stored = append(stored, storedFile{column: col, ref: ref})
		}
	}
	return stored, nil
}

// discardFiles removes files written by a call whose statement failed.
func (h *Handle) discardFiles(stored []storedFile) error {
	var errs []error
	for _, f := range stored {
		if err := h.files[f.column].Remove(f.ref); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		h.log.Warnw("Could not remove files of a failed write", logger.FieldCount, len(errs))
	}
	return errors.Join(errs...)
}

// loadFiles replaces references in r with the payloads they point to,
// decoded as the column's field type.
func (h *Handle) loadFiles(r row.Values) error {
	for col, store := range h.files {
		v, ok := r[col]
		if !ok || v == nil {
			continue
		}
		c, _ := h.schema.Column(col)
		ref := asString(v)
		payload, err := loadAs(store, ref, c.Hint)
		if err != nil {
			return errors.Wrapf(err, "table %s: column %s", h.Name(), col)
		}
		r[col] = payload
	}
	return nil
}

func loadAs(store *filestore.Store, ref string, hint reflect.Type) (any, error) {
	if hint == nil {
		var v any
		err := store.Load(ref, &v)
		return v, err
	}
	if hint.Kind() == reflect.Pointer {
		dst := reflect.New(hint.Elem())
		if err := store.Load(ref, dst.Interface()); err != nil {
			return nil, err
		}
		return dst.Interface(), nil
	}
	dst := reflect.New(hint)
	if err := store.Load(ref, dst.Interface()); err != nil {
		return nil, err
	}
	return dst.Elem().Interface(), nil
}

// ReconcileFileColumn deletes the files of column that no row references.
// When a row references a missing file nothing is deleted and the error
// lists the rows.
func (h *Handle) ReconcileFileColumn(ctx context.Context, column string) (filestore.Report, error) {
	if err := h.checkWritable("reconcile"); err != nil {
		return filestore.Report{}, err
	}
	store, ok := h.files[column]
	if !ok {
		return filestore.Report{}, errors.WithHint(
			errors.Wrapf(errors.ErrUnknownColumn, "table %s has no file-backed column %q", h.Name(), column),
			"declare it with files= or WithFileColumn")
	}

	keys := h.rowKeyColumns()
	st, err := query.Select{
		Table:   h.Name(),
		Columns: append(slices.Clone(keys), column),
		Where:   query.Where(query.Ident(column) + " IS NOT NULL"),
	}.Build()
	if err != nil {
		return filestore.Report{}, err
	}
	_, rows, err := h.exec().Query(ctx, st)
	if err != nil {
		return filestore.Report{}, errors.Wrapf(err, "table %s: reading references", h.Name())
	}

	live := make([]filestore.LiveRef, len(rows))
	for i, r := range rows {
		live[i] = filestore.LiveRef{Row: rowKey(keys, r), Ref: asString(r[column])}
	}
	report, err := store.Reconcile(live)
	if err != nil {
		return report, errors.Wrapf(err, "table %s: column %s", h.Name(), column)
	}
	h.log.Infow("Reconciled file column",
		logger.FieldColumn, column,
		logger.FieldDeleted, len(report.Deleted),
		"live", report.Live)
	return report, nil
}

// rowKeyColumns names the columns identifying a row in reports: the primary
// key, or rowid when there is none.
func (h *Handle) rowKeyColumns() []string {
	pk := h.schema.PrimaryKey()
	if len(pk) == 0 {
		return []string{"rowid"}
	}
	names := make([]string, len(pk))
	for i, c := range pk {
		names[i] = c.Name
	}
	return names
}

func rowKey(keys []string, r row.Values) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, r[k])
	}
	return strings.Join(parts, ",")
}

func isNilValue(v any) bool {
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
