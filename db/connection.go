package db

import (
	"database/sql"
	"net/url"
	"strconv"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/teranos/rowdb/errors"
	"github.com/teranos/rowdb/logger"
	"github.com/teranos/rowdb/sym"
)

// SQLiteBusyTimeoutMS is how long a connection waits on a locked database.
const SQLiteBusyTimeoutMS = 5000

// Options configure a database connection.
type Options struct {
	Path string
	// BusyTimeoutMS defaults to SQLiteBusyTimeoutMS when zero.
	BusyTimeoutMS int
	// Readonly opens the file read-only; writes fail in the engine.
	Readonly bool
}

// Open opens a SQLite database at the specified path with optimized settings.
// If logger is provided, logs database operations; otherwise operates silently.
func Open(path string, log *zap.SugaredLogger) (*sql.DB, error) {
	return OpenWith(Options{Path: path}, log)
}

// OpenWith opens a SQLite database using opts.
//
// Pragmas are set through the DSN so that every pooled connection gets them,
// not just the first one.
func OpenWith(opts Options, log *zap.SugaredLogger) (*sql.DB, error) {
	log = logger.OrNop(log)
	log.Debugw("Opening database", logger.FieldPath, opts.Path, logger.FieldSymbol, sym.DB)

	dsn := DSN(opts)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "failed to connect to database %s", opts.Path)
	}

	log.Infow("Database opened successfully",
		logger.FieldPath, opts.Path,
		logger.FieldSymbol, sym.DB,
		"wal_mode", !opts.Readonly,
		"foreign_keys", true,
		"readonly", opts.Readonly,
	)
	return db, nil
}

// DSN builds the go-sqlite3 data source name for opts.
func DSN(opts Options) string {
	timeout := opts.BusyTimeoutMS
	if timeout <= 0 {
		timeout = SQLiteBusyTimeoutMS
	}
	q := url.Values{}
	q.Set("_busy_timeout", strconv.Itoa(timeout))
	q.Set("_foreign_keys", "on")
	if opts.Readonly {
		q.Set("mode", "ro")
		q.Set("_query_only", "true")
	} else {
		// Enable WAL mode for concurrent reads during writes
		q.Set("_journal_mode", "WAL")
	}
	return "file:" + opts.Path + "?" + q.Encode()
}
