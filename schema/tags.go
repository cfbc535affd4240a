package schema

import (
	"strconv"
	"strings"

	"github.com/teranos/rowdb/errors"
)

// TagKey is the struct tag rowdb reads column arguments from.
const TagKey = "db"

// ColumnArgs are the column arguments parsed from a field's db tag:
//
//	db:"name,pk,autoincrement,unique,notnull,default=<sql>,order=<n>,
//	    fk=<table>.<column>,ondelete=<action>,files=<folder>,codec=<name>,
//	    type=<SQL type>,size=<n>,collate=<name>"
type ColumnArgs struct {
	Name          string
	Skip          bool
	PrimaryKey    bool
	AutoIncrement bool
	Unique        bool
	NotNull       bool
	Default       string
	HasDefault    bool
	Order         int
	HasOrder      bool
	References    string
	OnDelete      string
	Files         string
	Codec         string
	Type          string
	Size          int
	Collate       string
}

// Constructed reports whether construction arguments were given.
func (a ColumnArgs) Constructed() bool {
	return a.Size > 0 || a.Collate != ""
}

// ParseTag parses a db tag value. A tag of "-" marks the field as skipped.
func ParseTag(tag string) (ColumnArgs, error) {
	var args ColumnArgs
	if tag == "-" {
		args.Skip = true
		return args, nil
	}
	if tag == "" {
		return args, nil
	}

	parts := splitTag(tag)
	args.Name = strings.TrimSpace(parts[0])
	for _, part := range parts[1:] {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, val, hasVal := strings.Cut(part, "=")
		switch key {
		case "pk":
			args.PrimaryKey = true
		case "autoincrement":
			args.AutoIncrement = true
		case "unique":
			args.Unique = true
		case "notnull":
			args.NotNull = true
		case "default":
			args.Default, args.HasDefault = val, true
		case "order":
			n, err := strconv.Atoi(val)
			if err != nil {
				return args, errors.Wrapf(errors.ErrInvalidRowType, "tag %q: order must be an integer", tag)
			}
			args.Order, args.HasOrder = n, true
		case "fk":
			if strings.Count(val, ".") != 1 || strings.HasPrefix(val, ".") || strings.HasSuffix(val, ".") {
				return args, errors.Wrapf(errors.ErrInvalidRowType, "tag %q: fk must be <table>.<column>", tag)
			}
			args.References = val
		case "ondelete":
			args.OnDelete = strings.ToUpper(val)
		case "files":
			args.Files = val
		case "codec":
			args.Codec = val
		case "type":
			args.Type = val
		case "size":
			n, err := strconv.Atoi(val)
			if err != nil || n <= 0 {
				return args, errors.Wrapf(errors.ErrInvalidRowType, "tag %q: size must be a positive integer", tag)
			}
			args.Size = n
		case "collate":
			args.Collate = val
		default:
			return args, errors.WithHint(
				errors.Wrapf(errors.ErrInvalidRowType, "tag %q: unknown option %q", tag, key),
				"options: pk, autoincrement, unique, notnull, default, order, fk, ondelete, files, codec, type, size, collate")
		}
		if !hasVal && requiresValue(key) {
			return args, errors.Wrapf(errors.ErrInvalidRowType, "tag %q: %s needs a value", tag, key)
		}
	}
	return args, nil
}

func requiresValue(key string) bool {
	switch key {
	case "pk", "autoincrement", "unique", "notnull":
		return false
	}
	return true
}

// splitTag splits on commas outside parentheses so defaults such as
// default=(strftime('%s','now')) survive intact.
func splitTag(tag string) []string {
	var parts []string
	depth, start := 0, 0
	for i, r := range tag {
		switch r {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, tag[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, tag[start:])
}
