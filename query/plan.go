package query

import (
	"slices"
	"strconv"
	"strings"

	"github.com/teranos/rowdb/errors"
	"github.com/teranos/rowdb/row"
)

// DefaultMaxParams is SQLite's bound-parameter limit since 3.32.
const DefaultMaxParams = 32766

// Insert writes rows. Rows with the same column set share a statement;
// statements are split so none exceeds the parameter limit. A row with no
// columns inserts all defaults.
type Insert struct {
	Table     string
	Rows      []row.Values
	Conflict  Conflict
	MaxParams int
}

// Build renders the statements in row order of first appearance of each
// column set.
func (p Insert) Build() ([]Statement, error) {
	if p.Table == "" {
		return nil, errors.New("insert: no table")
	}
	limit := p.MaxParams
	if limit <= 0 {
		limit = DefaultMaxParams
	}

	type group struct {
		cols []string
		rows []row.Values
	}
	var groups []*group
	byKey := map[string]*group{}
	for _, r := range p.Rows {
		cols := sortedKeys(r)
		key := strings.Join(cols, "\x00")
		g, ok := byKey[key]
		if !ok {
			g = &group{cols: cols}
			byKey[key] = g
			groups = append(groups, g)
		}
		g.rows = append(g.rows, r)
	}

	head := "INSERT OR " + p.Conflict.keyword() + " INTO " + Ident(p.Table)
	var stmts []Statement
	for _, g := range groups {
		if len(g.cols) == 0 {
			for range g.rows {
				stmts = append(stmts, Statement{SQL: head + " DEFAULT VALUES", Inserts: true})
			}
			continue
		}
		if len(g.cols) > limit {
			return nil, errors.Newf("insert %s: %d columns exceed the parameter limit %d", p.Table, len(g.cols), limit)
		}
		perStmt := limit / len(g.cols)
		tuple := "(" + placeholders(len(g.cols)) + ")"
		for chunk := range slices.Chunk(g.rows, perStmt) {
			var b strings.Builder
			b.WriteString(head + " (" + identList(g.cols) + ") VALUES ")
			args := make([]any, 0, len(chunk)*len(g.cols))
			for i, r := range chunk {
				if i > 0 {
					b.WriteString(", ")
				}
				b.WriteString(tuple)
				for _, c := range g.cols {
					args = append(args, r[c])
				}
			}
			stmts = append(stmts, Statement{SQL: b.String(), Args: args, Inserts: true})
		}
	}
	return stmts, nil
}

// Select reads rows.
type Select struct {
	Table    string
	Columns  []string
	Where    Predicate
	OrderBy  []string
	GroupBy  []string
	Limit    int
	Offset   int
	Distinct bool
}

// Build renders the statement. OrderBy and GroupBy terms are SQL text.
func (p Select) Build() (Statement, error) {
	if p.Table == "" {
		return Statement{}, errors.New("select: no table")
	}
	var b strings.Builder
	b.WriteString("SELECT ")
	if p.Distinct {
		b.WriteString("DISTINCT ")
	}
	if len(p.Columns) == 0 {
		b.WriteString("*")
	} else {
		b.WriteString(identList(p.Columns))
	}
	b.WriteString(" FROM " + Ident(p.Table))
	if !p.Where.Empty() {
		b.WriteString(" WHERE " + p.Where.SQL)
	}
	if len(p.GroupBy) > 0 {
		b.WriteString(" GROUP BY " + strings.Join(p.GroupBy, ", "))
	}
	if len(p.OrderBy) > 0 {
		b.WriteString(" ORDER BY " + strings.Join(p.OrderBy, ", "))
	}
	switch {
	case p.Limit > 0:
		b.WriteString(" LIMIT " + strconv.Itoa(p.Limit))
	case p.Offset > 0:
		b.WriteString(" LIMIT -1")
	}
	if p.Offset > 0 {
		b.WriteString(" OFFSET " + strconv.Itoa(p.Offset))
	}
	return Statement{SQL: b.String(), Args: p.Where.Args}, nil
}

// Count counts rows matching Where.
type Count struct {
	Table string
	Where Predicate
}

func (p Count) Build() (Statement, error) {
	if p.Table == "" {
		return Statement{}, errors.New("count: no table")
	}
	sql := "SELECT COUNT(*) FROM " + Ident(p.Table)
	if !p.Where.Empty() {
		sql += " WHERE " + p.Where.SQL
	}
	return Statement{SQL: sql, Args: p.Where.Args}, nil
}

// Update sets columns on matching rows. Without a predicate All must be set.
type Update struct {
	Table    string
	Set      row.Values
	Where    Predicate
	All      bool
	Conflict Conflict
}

func (p Update) Build() (Statement, error) {
	if p.Table == "" {
		return Statement{}, errors.New("update: no table")
	}
	if err := CheckScope("update", p.Table, p.Where, p.All); err != nil {
		return Statement{}, err
	}
	if len(p.Set) == 0 {
		return Statement{}, errors.Newf("update %s: no columns to set", p.Table)
	}
	cols := sortedKeys(p.Set)
	assigns := make([]string, len(cols))
	args := make([]any, 0, len(cols)+len(p.Where.Args))
	for i, c := range cols {
		assigns[i] = Ident(c) + " = ?"
		args = append(args, p.Set[c])
	}
	sql := "UPDATE OR " + p.Conflict.keyword() + " " + Ident(p.Table) + " SET " + strings.Join(assigns, ", ")
	if !p.Where.Empty() {
		sql += " WHERE " + p.Where.SQL
		args = append(args, p.Where.Args...)
	}
	return Statement{SQL: sql, Args: args}, nil
}

// Delete removes matching rows. Without a predicate All must be set.
type Delete struct {
	Table string
	Where Predicate
	All   bool
}

func (p Delete) Build() (Statement, error) {
	if p.Table == "" {
		return Statement{}, errors.New("delete: no table")
	}
	if err := CheckScope("delete", p.Table, p.Where, p.All); err != nil {
		return Statement{}, err
	}
	sql := "DELETE FROM " + Ident(p.Table)
	if !p.Where.Empty() {
		sql += " WHERE " + p.Where.SQL
	}
	return Statement{SQL: sql, Args: p.Where.Args}, nil
}

// CheckScope fails with ErrUnscopedMutation when a mutation has neither a
// predicate nor the all-rows opt-in.
func CheckScope(op, table string, where Predicate, all bool) error {
	if !where.Empty() || all {
		return nil
	}
	return errors.WithHint(
		errors.Wrapf(errors.ErrUnscopedMutation, "%s %s without a predicate", op, table),
		"pass a Where predicate, or set All to touch every row")
}

func sortedKeys(v row.Values) []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
