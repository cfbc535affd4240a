package schema

import (
	"strconv"
	"strings"
)

// Kind is the logical class of a storage type. It decides how values are
// encoded on the way to the engine and decoded on the way back.
type Kind int

const (
	KindBlob Kind = iota
	KindInteger
	KindReal
	KindNumeric
	KindText
	KindBool
	KindTime
	KindJSON
)

var kindNames = [...]string{
	KindBlob:    "blob",
	KindInteger: "integer",
	KindReal:    "real",
	KindNumeric: "numeric",
	KindText:    "text",
	KindBool:    "bool",
	KindTime:    "time",
	KindJSON:    "json",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// StorageType is the engine-level type of a column.
type StorageType struct {
	Name    string `json:"name" yaml:"name"`
	Kind    Kind   `json:"kind" yaml:"kind"`
	Size    int    `json:"size,omitempty" yaml:"size,omitempty"`
	Collate string `json:"collate,omitempty" yaml:"collate,omitempty"`
}

// Predefined storage types used by the default rules.
var (
	Integer   = StorageType{Name: "INTEGER", Kind: KindInteger}
	Real      = StorageType{Name: "REAL", Kind: KindReal}
	Text      = StorageType{Name: "TEXT", Kind: KindText}
	Blob      = StorageType{Name: "BLOB", Kind: KindBlob}
	Boolean   = StorageType{Name: "BOOLEAN", Kind: KindBool}
	Timestamp = StorageType{Name: "TIMESTAMP", Kind: KindTime}
	JSON      = StorageType{Name: "JSON", Kind: KindJSON}
)

// SQL renders the type as it appears in a column definition.
func (st StorageType) SQL() string {
	s := st.Name
	if st.Size > 0 {
		s += "(" + strconv.Itoa(st.Size) + ")"
	}
	if st.Collate != "" {
		s += " COLLATE " + st.Collate
	}
	return s
}

// Construct returns st with construction arguments applied.
func (st StorageType) Construct(size int, collate string) StorageType {
	if size > 0 {
		st.Size = size
	}
	if collate != "" {
		st.Collate = collate
	}
	return st
}

// SameAs reports whether two types are interchangeable as far as the engine
// reports them. Collation is not part of what SQLite reflects.
func (st StorageType) SameAs(other StorageType) bool {
	return strings.EqualFold(st.Name, other.Name) && st.Size == other.Size
}

// ParseStorageType parses a declared column type such as "VARCHAR(32)".
// The kind follows SQLite's affinity rules, extended with the BOOL, time
// and JSON names rowdb itself declares.
func ParseStorageType(decl string) StorageType {
	decl = strings.TrimSpace(decl)
	st := StorageType{Name: strings.ToUpper(decl)}
	if open := strings.IndexByte(decl, '('); open >= 0 {
		st.Name = strings.ToUpper(strings.TrimSpace(decl[:open]))
		if end := strings.IndexByte(decl[open:], ')'); end > 0 {
			args := strings.Split(decl[open+1:open+end], ",")
			if n, err := strconv.Atoi(strings.TrimSpace(args[0])); err == nil {
				st.Size = n
			}
		}
	}
	st.Kind = affinity(st.Name)
	return st
}

// affinity maps a type name to its kind.
// See https://www.sqlite.org/datatype3.html section 3.1.
func affinity(name string) Kind {
	n := strings.ToUpper(name)
	switch {
	case strings.Contains(n, "BOOL"):
		return KindBool
	case strings.Contains(n, "JSON"):
		return KindJSON
	case strings.Contains(n, "TIMESTAMP"), strings.Contains(n, "DATE"):
		return KindTime
	case strings.Contains(n, "INT"):
		return KindInteger
	case strings.Contains(n, "CHAR"), strings.Contains(n, "CLOB"), strings.Contains(n, "TEXT"):
		return KindText
	case n == "", strings.Contains(n, "BLOB"):
		return KindBlob
	case strings.Contains(n, "REAL"), strings.Contains(n, "FLOA"), strings.Contains(n, "DOUB"):
		return KindReal
	default:
		return KindNumeric
	}
}
