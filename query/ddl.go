package query

import (
	"strings"

	"github.com/teranos/rowdb/schema"
)

// CreateTable renders CREATE TABLE for s.
func CreateTable(s *schema.Schema, ifNotExists bool) string {
	pk := s.PrimaryKey()
	inlinePK := len(pk) == 1

	var defs []string
	for _, c := range s.Columns() {
		defs = append(defs, columnDef(c, inlinePK))
	}
	if len(pk) > 1 {
		names := make([]string, len(pk))
		for i, c := range pk {
			names[i] = c.Name
		}
		defs = append(defs, "PRIMARY KEY ("+identList(names)+")")
	}
	for _, con := range s.Constraints() {
		switch con.Kind {
		case schema.ConstraintUnique:
			defs = append(defs, "CONSTRAINT "+Ident(con.Name)+" UNIQUE ("+identList(con.Columns)+")")
		case schema.ConstraintCheck:
			defs = append(defs, "CONSTRAINT "+Ident(con.Name)+" CHECK ("+con.Expr+")")
		}
	}

	head := "CREATE TABLE "
	if ifNotExists {
		head += "IF NOT EXISTS "
	}
	return head + Ident(s.Name()) + " (\n\t" + strings.Join(defs, ",\n\t") + "\n)"
}

// AddColumn renders ALTER TABLE ADD COLUMN. The engine rejects primary key
// and unique columns here, and NOT NULL columns without a default.
func AddColumn(table string, c schema.Column) string {
	return "ALTER TABLE " + Ident(table) + " ADD COLUMN " + columnDef(c, false)
}

// CreateIndex renders CREATE [UNIQUE] INDEX.
func CreateIndex(table string, ix schema.Index, ifNotExists bool) string {
	var b strings.Builder
	b.WriteString("CREATE ")
	if ix.Unique {
		b.WriteString("UNIQUE ")
	}
	b.WriteString("INDEX ")
	if ifNotExists {
		b.WriteString("IF NOT EXISTS ")
	}
	b.WriteString(Ident(ix.Name) + " ON " + Ident(table) + " (" + identList(ix.Columns) + ")")
	return b.String()
}

func columnDef(c schema.Column, inlinePK bool) string {
	parts := []string{Ident(c.Name)}
	if t := c.Type.SQL(); t != "" {
		parts = append(parts, t)
	}
	if c.PrimaryKey && inlinePK {
		parts = append(parts, "PRIMARY KEY")
		if c.AutoIncrement {
			parts = append(parts, "AUTOINCREMENT")
		}
	}
	if !c.Nullable {
		parts = append(parts, "NOT NULL")
	}
	if c.Unique && !c.PrimaryKey {
		parts = append(parts, "UNIQUE")
	}
	if c.HasDefault {
		parts = append(parts, "DEFAULT "+c.Default)
	}
	if fk := c.ForeignKey; fk != nil {
		ref := "REFERENCES " + Ident(fk.Table) + " (" + Ident(fk.Column) + ")"
		if fk.OnDelete != "" {
			ref += " ON DELETE " + fk.OnDelete
		}
		parts = append(parts, ref)
	}
	return strings.Join(parts, " ")
}
