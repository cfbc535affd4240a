package schema

import (
	"encoding/json"
	"reflect"
	"strings"

	"github.com/google/uuid"
)

// Rule maps a Go type pattern to a storage type.
type Rule struct {
	// Pattern is compared with reflect.Type.String() of the hint.
	Pattern string
	// Type is compared by identity, then used for the subtype check.
	// Nil for name-only rules.
	Type    reflect.Type
	Storage StorageType
}

// ByName builds a rule matched only by the type's string form.
func ByName(pattern string, st StorageType) Rule {
	return Rule{Pattern: pattern, Storage: st}
}

// ByType builds a rule for t. It matches t exactly and, in the last pass,
// types of the same kind family (named ints for an int rule) or types
// implementing t when t is an interface.
func ByType(t reflect.Type, st StorageType) Rule {
	return Rule{Pattern: t.String(), Type: t, Storage: st}
}

// Rules is an ordered, immutable list of type rules. First match wins.
type Rules struct {
	rules []Rule
}

// NewRules copies rules into an immutable list.
func NewRules(rules ...Rule) Rules {
	return Rules{rules: append([]Rule(nil), rules...)}
}

// DefaultRules returns the rule list used when a compiler is not given one.
func DefaultRules() Rules {
	return NewRules(
		ByName("time.Time", Timestamp),
		ByName("json.RawMessage", JSON),
		ByType(reflect.TypeFor[[]byte](), Blob),
		ByType(reflect.TypeFor[uuid.UUID](), Text),
		ByType(reflect.TypeFor[bool](), Boolean),
		ByType(reflect.TypeFor[int64](), Integer),
		ByType(reflect.TypeFor[uint64](), Integer),
		ByType(reflect.TypeFor[float64](), Real),
		ByType(reflect.TypeFor[string](), Text),
		ByType(reflect.TypeFor[json.Marshaler](), JSON),
		ByType(reflect.TypeFor[map[string]any](), JSON),
	)
}

// Len returns the number of rules.
func (r Rules) Len() int { return len(r.rules) }

// Resolve finds the storage type for hint in three passes: exact string
// equality, type identity, then the subtype check.
func (r Rules) Resolve(hint reflect.Type) (StorageType, bool) {
	name := hint.String()
	for _, rule := range r.rules {
		if rule.Pattern == name {
			return rule.Storage, true
		}
	}
	for _, rule := range r.rules {
		if rule.Type != nil && rule.Type == hint {
			return rule.Storage, true
		}
	}
	for _, rule := range r.rules {
		if rule.Type != nil && subtype(hint, rule.Type) {
			return rule.Storage, true
		}
	}
	return StorageType{}, false
}

// Supported lists the rule patterns, for error messages.
func (r Rules) Supported() string {
	names := make([]string, len(r.rules))
	for i, rule := range r.rules {
		names[i] = rule.Pattern
	}
	return strings.Join(names, ", ")
}

// subtype is the Go reading of "subclass": interface satisfaction, or a
// named type sharing the rule type's kind family.
func subtype(hint, of reflect.Type) bool {
	if of.Kind() == reflect.Interface {
		return hint.Implements(of) || reflect.PointerTo(hint).Implements(of)
	}
	switch of.Kind() {
	case reflect.Struct, reflect.Array:
		return false
	}
	f := family(hint)
	return f != familyNone && f == family(of)
}

type kindFamily int

const (
	familyNone kindFamily = iota
	familyBool
	familySigned
	familyUnsigned
	familyFloat
	familyString
	familyBytes
	familyComposite
)

func family(t reflect.Type) kindFamily {
	switch t.Kind() {
	case reflect.Bool:
		return familyBool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return familySigned
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return familyUnsigned
	case reflect.Float32, reflect.Float64:
		return familyFloat
	case reflect.String:
		return familyString
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return familyBytes
		}
		return familyComposite
	case reflect.Map, reflect.Array, reflect.Struct:
		return familyComposite
	}
	return familyNone
}
