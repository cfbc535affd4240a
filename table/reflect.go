package table

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/teranos/rowdb/errors"
	"github.com/teranos/rowdb/logger"
	"github.com/teranos/rowdb/query"
	"github.com/teranos/rowdb/row"
	"github.com/teranos/rowdb/schema"
)

// Reflect binds the live table name without a compiled schema. The handle
// only supports the Raw operations.
func Reflect(ctx context.Context, conn query.Conn, name string, opts ...Option) (*Handle, error) {
	o := collect(opts)
	log := handleLogger(o, name).With(logger.FieldMode, ModeReflect.String())

	s, err := reflectSchema(ctx, conn, name)
	if err != nil {
		return nil, err
	}
	h, err := newHandle(conn, s, o, log)
	if err != nil {
		return nil, err
	}
	log.Infow("Reflected table", logger.FieldCount, len(s.Columns()), "indices", len(s.Indices()))
	return h, nil
}

// Tables lists the user tables on conn, in name order.
func Tables(ctx context.Context, conn query.Conn) ([]string, error) {
	_, rows, err := query.Executor{Conn: conn}.Query(ctx, query.Statement{
		SQL: "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name",
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list tables")
	}
	names := make([]string, 0, len(rows))
	for _, r := range rows {
		names = append(names, asString(r["name"]))
	}
	return names, nil
}

func tableSQL(ctx context.Context, conn query.Conn, name string) (string, bool, error) {
	_, rows, err := query.Executor{Conn: conn}.Query(ctx, query.Statement{
		SQL:  "SELECT sql FROM sqlite_master WHERE type = 'table' AND name = ?",
		Args: []any{name},
	})
	if err != nil {
		return "", false, errors.Wrapf(err, "failed to look up table %s", name)
	}
	if len(rows) == 0 {
		return "", false, nil
	}
	return asString(rows[0]["sql"]), true, nil
}

func tableExists(ctx context.Context, conn query.Conn, name string) (bool, error) {
	_, ok, err := tableSQL(ctx, conn, name)
	return ok, err
}

// reflectSchema reads column, index and foreign key metadata from the
// engine's pragmas.
func reflectSchema(ctx context.Context, conn query.Conn, name string) (*schema.Schema, error) {
	ddl, ok, err := tableSQL(ctx, conn, name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Wrapf(errors.ErrTableNotFound, "table %s", name)
	}
	exec := query.Executor{Conn: conn}
	pragma := func(fn, arg string) ([]row.Values, error) {
		_, rows, err := exec.Query(ctx, query.Statement{SQL: fmt.Sprintf("PRAGMA %s(%s)", fn, query.Ident(arg))})
		if err != nil {
			return nil, errors.Wrapf(err, "table %s: %s", name, fn)
		}
		return rows, nil
	}

	info, err := pragma("table_info", name)
	if err != nil {
		return nil, err
	}
	live := make([]schema.LiveColumn, len(info))
	byName := make(map[string]*schema.LiveColumn, len(info))
	pkCount := 0
	for i, r := range info {
		lc := schema.LiveColumn{
			CID:     int(asInt(r["cid"])),
			Name:    asString(r["name"]),
			Type:    asString(r["type"]),
			NotNull: asInt(r["notnull"]) != 0,
			PK:      int(asInt(r["pk"])),
		}
		if d := r["dflt_value"]; d != nil {
			s := asString(d)
			lc.Default = &s
		}
		if lc.PK > 0 {
			pkCount++
		}
		live[i] = lc
		byName[lc.Name] = &live[i]
	}
	if pkCount == 1 && strings.Contains(strings.ToUpper(ddl), "AUTOINCREMENT") {
		for i := range live {
			if live[i].PK > 0 && strings.EqualFold(live[i].Type, "INTEGER") {
				live[i].AutoIncrement = true
			}
		}
	}

	indexList, err := pragma("index_list", name)
	if err != nil {
		return nil, err
	}
	var indices []schema.Index
	for _, r := range indexList {
		ixName := asString(r["name"])
		unique := asInt(r["unique"]) != 0
		cols, err := pragma("index_info", ixName)
		if err != nil {
			return nil, err
		}
		names := make([]string, len(cols))
		for i, c := range cols {
			names[i] = asString(c["name"])
		}
		switch asString(r["origin"]) {
		case "c":
			indices = append(indices, schema.Index{Name: ixName, Columns: names, Unique: unique})
		case "u":
			if len(names) == 1 {
				if lc, ok := byName[names[0]]; ok {
					lc.Unique = true
				}
			}
		}
	}
	slices.SortFunc(indices, func(a, b schema.Index) int { return strings.Compare(a.Name, b.Name) })

	fks, err := pragma("foreign_key_list", name)
	if err != nil {
		return nil, err
	}
	for _, r := range fks {
		lc, ok := byName[asString(r["from"])]
		if !ok {
			continue
		}
		fk := &schema.ForeignKey{Table: asString(r["table"]), Column: asString(r["to"])}
		if od := strings.ToUpper(asString(r["on_delete"])); od != "NO ACTION" {
			fk.OnDelete = od
		}
		lc.ForeignKey = fk
	}

	return schema.FromLive(name, live, indices), nil
}

func asString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}

func asInt(v any) int64 {
	switch x := v.(type) {
	case int64:
		return x
	case int:
		return int64(x)
	case bool:
		if x {
			return 1
		}
	case float64:
		return int64(x)
	}
	return 0
}
