package schema

import (
	"fmt"
	"strings"
)

// ColumnChange is a column present on both sides whose definition differs.
type ColumnChange struct {
	Column       string      `json:"column" yaml:"column"`
	Want         StorageType `json:"want" yaml:"want"`
	Have         StorageType `json:"have" yaml:"have"`
	WantNullable bool        `json:"want_nullable" yaml:"want_nullable"`
	HaveNullable bool        `json:"have_nullable" yaml:"have_nullable"`
}

// Drift is the difference between a compiled schema and a live table.
type Drift struct {
	Table          string         `json:"table" yaml:"table"`
	Missing        []Column       `json:"missing,omitempty" yaml:"missing,omitempty"`
	Extra          []Column       `json:"extra,omitempty" yaml:"extra,omitempty"`
	Changed        []ColumnChange `json:"changed,omitempty" yaml:"changed,omitempty"`
	MissingIndices []Index        `json:"missing_indices,omitempty" yaml:"missing_indices,omitempty"`
	ExtraIndices   []Index        `json:"extra_indices,omitempty" yaml:"extra_indices,omitempty"`
}

// Empty reports whether there is no drift.
func (d Drift) Empty() bool {
	return len(d.Missing) == 0 && len(d.Extra) == 0 && len(d.Changed) == 0 &&
		len(d.MissingIndices) == 0 && len(d.ExtraIndices) == 0
}

func (d Drift) String() string {
	if d.Empty() {
		return d.Table + ": in sync"
	}
	var b strings.Builder
	b.WriteString(d.Table + ":")
	for _, c := range d.Missing {
		fmt.Fprintf(&b, " +%s", c.Name)
	}
	for _, c := range d.Extra {
		fmt.Fprintf(&b, " -%s", c.Name)
	}
	for _, c := range d.Changed {
		fmt.Fprintf(&b, " ~%s(%s->%s)", c.Column, c.Have.SQL(), c.Want.SQL())
	}
	for _, ix := range d.MissingIndices {
		fmt.Fprintf(&b, " +index:%s", ix.Name)
	}
	for _, ix := range d.ExtraIndices {
		fmt.Fprintf(&b, " -index:%s", ix.Name)
	}
	return b.String()
}

// Diff compares want (usually compiled) against have (usually reflected).
// Missing means present in want only.
func Diff(want, have *Schema) Drift {
	d := Drift{Table: want.Name()}
	for _, wc := range want.columns {
		hc, ok := have.Column(wc.Name)
		if !ok {
			d.Missing = append(d.Missing, wc)
			continue
		}
		if !wc.Type.SameAs(hc.Type) || wc.Nullable != hc.Nullable {
			d.Changed = append(d.Changed, ColumnChange{
				Column:       wc.Name,
				Want:         wc.Type,
				Have:         hc.Type,
				WantNullable: wc.Nullable,
				HaveNullable: hc.Nullable,
			})
		}
	}
	for _, hc := range have.columns {
		if _, ok := want.Column(hc.Name); !ok {
			d.Extra = append(d.Extra, hc)
		}
	}

	haveIx := indexNames(have.indices)
	wantIx := indexNames(want.indices)
	for _, ix := range want.indices {
		if !haveIx[ix.Name] {
			d.MissingIndices = append(d.MissingIndices, ix)
		}
	}
	for _, ix := range have.indices {
		if !wantIx[ix.Name] {
			d.ExtraIndices = append(d.ExtraIndices, ix)
		}
	}
	return d
}

func indexNames(ixs []Index) map[string]bool {
	m := make(map[string]bool, len(ixs))
	for _, ix := range ixs {
		m[ix.Name] = true
	}
	return m
}
