// Package table binds schemas to live SQLite tables.
//
// A Handle is created with Open (from a compiled schema) or Reflect (from
// whatever the engine reports). Every operation is synchronous and builds a
// fresh query plan; nothing is cached between calls.
package table

import (
	"context"
	"database/sql"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/teranos/rowdb/errors"
	"github.com/teranos/rowdb/filestore"
	"github.com/teranos/rowdb/logger"
	"github.com/teranos/rowdb/query"
	"github.com/teranos/rowdb/schema"
	"github.com/teranos/rowdb/sym"
)

// Mode selects how Open treats the live table.
type Mode int

const (
	// ModeCreate creates the table and fails if it exists.
	ModeCreate Mode = iota
	// ModeCreateOrExtend creates the table, or adds missing columns and
	// indices to an existing one. Nothing is ever dropped.
	ModeCreateOrExtend
	// ModeReflect uses the live table as it is.
	ModeReflect
)

func (m Mode) String() string {
	switch m {
	case ModeCreate:
		return "create"
	case ModeCreateOrExtend:
		return "create-or-extend"
	case ModeReflect:
		return "reflect"
	}
	return "unknown"
}

// Option configures a Handle.
type Option func(*options)

type options struct {
	readonly  bool
	log       *zap.SugaredLogger
	fileRoot  string
	fileCols  []fileColumn
	maxParams int
}

type fileColumn struct {
	column string
	spec   schema.FileSpec
}

// WithReadonly makes every mutating operation fail with ErrReadonly.
func WithReadonly() Option {
	return func(o *options) { o.readonly = true }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(o *options) { o.log = l }
}

// WithFileRoot resolves relative files= folders under dir.
func WithFileRoot(dir string) Option {
	return func(o *options) { o.fileRoot = dir }
}

// WithFileColumn declares a TEXT column of a reflected table as file-backed.
func WithFileColumn(column, folder, codec string) Option {
	return func(o *options) {
		if codec == "" {
			codec = schema.CodecJSON
		}
		o.fileCols = append(o.fileCols, fileColumn{column: column, spec: schema.FileSpec{Folder: folder, Codec: codec}})
	}
}

// WithMaxParams overrides the bound-parameter limit used to split inserts.
func WithMaxParams(n int) Option {
	return func(o *options) { o.maxParams = n }
}

// Handle is a table bound to a connection.
type Handle struct {
	conn      query.Conn
	schema    *schema.Schema
	readonly  bool
	log       *zap.SugaredLogger
	files     map[string]*filestore.Store
	maxParams int
}

// Open binds s to its table on conn according to mode.
func Open(ctx context.Context, conn query.Conn, s *schema.Schema, mode Mode, opts ...Option) (*Handle, error) {
	if mode == ModeReflect {
		return Reflect(ctx, conn, s.Name(), opts...)
	}
	o := collect(opts)
	log := handleLogger(o, s.Name()).With(logger.FieldMode, mode.String())

	exists, err := tableExists(ctx, conn, s.Name())
	if err != nil {
		return nil, err
	}

	switch {
	case mode == ModeCreate && exists:
		return nil, errors.Wrapf(errors.ErrTableExists, "table %s", s.Name())
	case !exists:
		if o.readonly {
			return nil, errors.Wrapf(errors.ErrReadonly, "cannot create table %s on a read-only handle", s.Name())
		}
		if err := create(ctx, conn, s, log); err != nil {
			return nil, err
		}
	default:
		if err := extend(ctx, conn, s, o.readonly, log); err != nil {
			return nil, err
		}
	}

	h, err := newHandle(conn, s, o, log)
	if err != nil {
		return nil, err
	}
	log.Infow("Opened table", logger.FieldCount, len(s.Columns()))
	return h, nil
}

func create(ctx context.Context, conn query.Conn, s *schema.Schema, log *zap.SugaredLogger) error {
	stmts := []query.Statement{{SQL: query.CreateTable(s, false)}}
	for _, ix := range s.Indices() {
		stmts = append(stmts, query.Statement{SQL: query.CreateIndex(s.Name(), ix, false)})
	}
	if _, err := (query.Executor{Conn: conn, Logger: log}).Exec(ctx, stmts...); err != nil {
		return errors.Wrapf(err, "failed to create table %s", s.Name())
	}
	log.Infow("Created table", logger.FieldTable, s.Name())
	return nil
}

func extend(ctx context.Context, conn query.Conn, s *schema.Schema, readonly bool, log *zap.SugaredLogger) error {
	live, err := reflectSchema(ctx, conn, s.Name())
	if err != nil {
		return err
	}
	drift := schema.Diff(s, live)

	var stmts []query.Statement
	for _, c := range drift.Missing {
		stmts = append(stmts, query.Statement{SQL: query.AddColumn(s.Name(), c)})
	}
	for _, ix := range drift.MissingIndices {
		stmts = append(stmts, query.Statement{SQL: query.CreateIndex(s.Name(), ix, true)})
	}
	if len(drift.Changed) > 0 || len(drift.Extra) > 0 {
		log.Warnw("Live table differs from schema; leaving it as is", "drift", drift.String())
	}
	if len(stmts) == 0 {
		return nil
	}
	if readonly {
		return errors.WithDetailf(
			errors.Wrapf(errors.ErrReadonly, "table %s needs extending", s.Name()),
			"%s", drift.String())
	}
	if _, err := (query.Executor{Conn: conn, Logger: log}).Exec(ctx, stmts...); err != nil {
		return errors.Wrapf(err, "failed to extend table %s", s.Name())
	}
	log.Infow("Extended table",
		"columns_added", len(drift.Missing),
		"indices_added", len(drift.MissingIndices))
	return nil
}

func collect(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func handleLogger(o options, table string) *zap.SugaredLogger {
	return logger.WithSymbol(o.log, sym.DB).With(logger.FieldTable, table)
}

func newHandle(conn query.Conn, s *schema.Schema, o options, log *zap.SugaredLogger) (*Handle, error) {
	for _, fc := range o.fileCols {
		fs, ok := s.WithFiles(fc.column, fc.spec)
		if !ok {
			return nil, errors.Wrapf(errors.ErrUnknownColumn, "table %s has no column %q to back with files", s.Name(), fc.column)
		}
		s = fs
	}

	h := &Handle{
		conn:      conn,
		schema:    s,
		readonly:  o.readonly,
		log:       log,
		files:     map[string]*filestore.Store{},
		maxParams: o.maxParams,
	}
	for _, c := range s.FileColumns() {
		codec, err := filestore.CodecFor(c.Files.Codec)
		if err != nil {
			return nil, errors.Wrapf(err, "table %s: column %s", s.Name(), c.Name)
		}
		folder := c.Files.Folder
		if !filepath.IsAbs(folder) && o.fileRoot != "" {
			folder = filepath.Join(o.fileRoot, folder)
		}
		store, err := filestore.New(folder, codec, log.With(logger.FieldColumn, c.Name))
		if err != nil {
			return nil, errors.Wrapf(err, "table %s: column %s", s.Name(), c.Name)
		}
		h.files[c.Name] = store
	}
	return h, nil
}

// Schema returns the handle's schema.
func (h *Handle) Schema() *schema.Schema { return h.schema }

// Name returns the table name.
func (h *Handle) Name() string { return h.schema.Name() }

// Readonly reports whether mutations are refused.
func (h *Handle) Readonly() bool { return h.readonly }

// Files returns the store behind a file-backed column.
func (h *Handle) Files(column string) (*filestore.Store, bool) {
	s, ok := h.files[column]
	return s, ok
}

// Tx returns a copy of h that runs on tx. Commit and rollback stay with the
// caller.
func (h *Handle) Tx(tx *sql.Tx) *Handle {
	cp := *h
	cp.conn = tx
	return &cp
}

// Diff compares the handle's schema with the live table.
func (h *Handle) Diff(ctx context.Context) (schema.Drift, error) {
	live, err := reflectSchema(ctx, h.conn, h.Name())
	if err != nil {
		return schema.Drift{}, err
	}
	return schema.Diff(h.schema, live), nil
}

func (h *Handle) exec() query.Executor {
	return query.Executor{Conn: h.conn, Logger: h.log}
}

func (h *Handle) checkWritable(op string) error {
	if h.readonly {
		return errors.Wrapf(errors.ErrReadonly, "%s on read-only table %s", op, h.Name())
	}
	return nil
}
