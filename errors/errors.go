// Package errors provides error handling for rowdb.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - Hints and details for the person reading the error
//
// On top of that it defines the sentinels for the two error families every
// rowdb failure belongs to:
//
//   - usage errors: programmer errors. A wrong argument shape, an ambiguous column
//     declaration, strict access of an unfetched field. Always a bug.
//   - domain errors: expected, recoverable outcomes. No row matched, a table
//     already exists, a referenced file is gone.
//
// Usage:
//
//	row, err := users.SelectFirst(ctx, q)
//	if errors.IsDomainError(err) {
//	    // handle absence
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New           = crdb.New
	Newf          = crdb.Newf
	Wrap          = crdb.Wrap
	Wrapf         = crdb.Wrapf
	WithStack     = crdb.WithStack
	WithMessage   = crdb.WithMessage
	WithMessagef  = crdb.WithMessagef
	Join          = crdb.Join
	CombineErrors = crdb.CombineErrors
)

// User-facing messages and details
var (
	WithHint       = crdb.WithHint
	WithHintf      = crdb.WithHintf
	WithDetail     = crdb.WithDetail
	WithDetailf    = crdb.WithDetailf
	GetAllHints    = crdb.GetAllHints
	GetAllDetails  = crdb.GetAllDetails
	FlattenHints   = crdb.FlattenHints
	FlattenDetails = crdb.FlattenDetails
)

// Error inspection
var (
	Is        = crdb.Is
	IsAny     = crdb.IsAny
	As        = crdb.As
	Unwrap    = crdb.Unwrap
	UnwrapAll = crdb.UnwrapAll
)

// GetStack returns the reportable stack trace attached to err, if any.
var GetStack = crdb.GetReportableStackTrace

// Definition-time errors (schema compilation)
var (
	ErrInvalidRowType       = New("invalid row type")
	ErrUnresolvedColumnType = New("unresolved column type")
	ErrAmbiguousColumnType  = New("ambiguous column type")
	ErrDuplicateColumn      = New("duplicate column")
	ErrUnknownColumn        = New("unknown column")
	ErrUnknownReference     = New("unknown foreign key reference")
)

// Marshaling and query-construction errors
var (
	ErrConversion       = New("row conversion failed")
	ErrDataNotAvailable = New("data not available")
	ErrShapeMismatch    = New("argument shape mismatch")
	ErrUnscopedMutation = New("unscoped mutation")
	ErrReadonly         = New("table is readonly")
	ErrInvalidReference = New("invalid file reference")
)

// Domain errors
var (
	// ErrNotFound indicates no row matched a lookup
	ErrNotFound = New("not found")

	ErrTableExists       = New("table already exists")
	ErrTableNotFound     = New("table does not exist")
	ErrMissingFile       = New("missing file")
	ErrDanglingReference = New("dangling file reference")
)

var usageErrors = []error{
	ErrInvalidRowType, ErrUnresolvedColumnType, ErrAmbiguousColumnType,
	ErrDuplicateColumn, ErrUnknownColumn, ErrUnknownReference,
	ErrConversion, ErrDataNotAvailable, ErrShapeMismatch,
	ErrUnscopedMutation, ErrReadonly, ErrInvalidReference,
}

var domainErrors = []error{
	ErrNotFound, ErrTableExists, ErrTableNotFound, ErrMissingFile, ErrDanglingReference,
}

// IsUsageError reports whether err wraps one of the usage sentinels.
// These are bugs in the calling code and should not be handled at runtime.
func IsUsageError(err error) bool {
	return err != nil && IsAny(err, usageErrors...)
}

// IsDomainError reports whether err wraps one of the domain sentinels.
func IsDomainError(err error) bool {
	return err != nil && IsAny(err, domainErrors...)
}

// IsNotFoundError checks if an error is or wraps ErrNotFound.
func IsNotFoundError(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}
