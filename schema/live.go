package schema

import (
	"math"
	"slices"
)

// LiveColumn is a column as the engine reports it.
type LiveColumn struct {
	CID           int
	Name          string
	Type          string
	NotNull       bool
	Default       *string
	PK            int // position in the primary key, 0 when not part of it
	Unique        bool
	AutoIncrement bool
	ForeignKey    *ForeignKey
}

// FromLive builds a schema from reflected column metadata. Storage types are
// parsed from the declared type text; no rules are consulted.
func FromLive(name string, live []LiveColumn, indices []Index) *Schema {
	cols := make([]Column, 0, len(live))
	for _, lc := range live {
		c := Column{
			Name:          lc.Name,
			Type:          ParseStorageType(lc.Type),
			Index:         lc.CID,
			Order:         math.MaxInt,
			Nullable:      !lc.NotNull && lc.PK == 0,
			Unique:        lc.Unique,
			PrimaryKey:    lc.PK > 0,
			AutoIncrement: lc.AutoIncrement,
			ForeignKey:    lc.ForeignKey,
		}
		if lc.Default != nil {
			c.Default, c.HasDefault = *lc.Default, true
		}
		cols = append(cols, c)
	}
	slices.SortStableFunc(cols, func(a, b Column) int { return a.Index - b.Index })
	return newSchema(name, nil, cols, slices.Clone(indices), nil)
}
