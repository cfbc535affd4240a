// Package query builds SQL statements for rowdb tables and runs them.
//
// Plans are plain values built per call and never cached. Building is pure;
// only Executor talks to the engine.
package query

import (
	"strings"
)

// Conflict selects the engine's behaviour when a write violates a
// constraint. It is passed through verbatim as INSERT OR <policy>.
type Conflict int

const (
	ConflictFail Conflict = iota
	ConflictIgnore
	ConflictReplace
)

func (c Conflict) String() string {
	switch c {
	case ConflictIgnore:
		return "ignore"
	case ConflictReplace:
		return "replace"
	}
	return "fail"
}

// keyword is the SQLite conflict clause keyword.
func (c Conflict) keyword() string {
	switch c {
	case ConflictIgnore:
		return "IGNORE"
	case ConflictReplace:
		return "REPLACE"
	}
	return "ABORT"
}

// ParseConflict maps fail, ignore and replace to their Conflict.
func ParseConflict(s string) (Conflict, bool) {
	switch strings.ToLower(s) {
	case "", "fail", "abort":
		return ConflictFail, true
	case "ignore":
		return ConflictIgnore, true
	case "replace":
		return ConflictReplace, true
	}
	return ConflictFail, false
}

// Predicate is SQL text for a WHERE clause plus its positional arguments.
type Predicate struct {
	SQL  string
	Args []any
}

// Where builds a predicate. The text is used verbatim.
func Where(sql string, args ...any) Predicate {
	return Predicate{SQL: strings.TrimSpace(sql), Args: args}
}

// Empty reports whether p has no condition.
func (p Predicate) Empty() bool { return p.SQL == "" }

// Statement is one SQL statement ready to execute.
type Statement struct {
	SQL  string
	Args []any
	// Inserts marks statements whose last insert rowid is meaningful.
	Inserts bool
}

// Ident quotes an identifier for SQLite.
func Ident(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func identList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = Ident(n)
	}
	return strings.Join(quoted, ", ")
}

func placeholders(n int) string {
	if n == 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
