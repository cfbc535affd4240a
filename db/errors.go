package db

import (
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/teranos/rowdb/errors"
)

// ErrDatabaseClosed is returned when operations are attempted on a closed database.
var ErrDatabaseClosed = errors.New("database is closed")

// IsDatabaseClosed checks if an error indicates the database connection is closed.
// This handles both:
// - Wrapped ErrDatabaseClosed errors from this package
// - Raw database/sql errors that contain "database is closed" in their message
//
// The string matching fallback is necessary because database/sql returns an
// unexported error we cannot compare against.
func IsDatabaseClosed(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDatabaseClosed) {
		return true
	}
	return strings.Contains(err.Error(), "database is closed")
}

// IsConstraintViolation reports whether the engine rejected a write because
// of a UNIQUE, NOT NULL, CHECK, PRIMARY KEY or FOREIGN KEY constraint.
func IsConstraintViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.Code == sqlite3.ErrConstraint
}

// IsBusy reports whether the database stayed locked past the busy timeout.
func IsBusy(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && (se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked)
}

// IsReadonly reports whether the engine refused a write on a read-only
// connection.
func IsReadonly(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.Code == sqlite3.ErrReadonly
}
