package postgres

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cast"

	"parlsync/internal/domain/document"
	"parlsync/internal/domain/resource"
)

var pathEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// filter собирает условие WHERE над колонкой data (jsonb) вместе с аргументами.
// Скалярные сравнения идут через jsonpath в lax-режиме: он сам раскрывает
// списки на пути, как и resource.Match.
type filter struct {
	conds []string
	args  []any
}

func buildFilter(collection string, where document.Document) (*filter, error) {
	f := &filter{}
	f.conds = append(f.conds, "collection = "+f.arg(collection))

	paths := lo.Keys(where)
	sort.Strings(paths)
	for _, path := range paths {
		cond, err := f.condition(strings.Split(path, "."), where[path])
		if err != nil {
			return nil, err
		}
		f.conds = append(f.conds, cond)
	}
	return f, nil
}

func (f *filter) arg(v any) string {
	f.args = append(f.args, v)
	return fmt.Sprintf("$%d", len(f.args))
}

func (f *filter) where() string {
	return strings.Join(f.conds, " AND ")
}

// orderBy - сортировка по полям документа, отсутствующие значения первыми
// при сортировке по возрастанию. Последний ключ - порядок вставки.
func (f *filter) orderBy(fields []resource.SortField) string {
	parts := make([]string, 0, len(fields)+1)
	for _, field := range fields {
		dir := "ASC NULLS FIRST"
		if field.Desc {
			dir = "DESC NULLS LAST"
		}
		parts = append(parts, fmt.Sprintf("data #> %s::text[] %s", f.arg(strings.Split(field.Path, ".")), dir))
	}
	return strings.Join(append(parts, "seq"), ", ")
}

func (f *filter) condition(parts []string, cond any) (string, error) {
	ops, ok := resource.Operators(cond)
	if !ok {
		return f.equal(parts, cond)
	}

	names := lo.Keys(ops)
	sort.Strings(names)

	out := make([]string, 0, len(names))
	for _, op := range names {
		arg := ops[op]
		switch op {
		case resource.OpIn:
			list, _ := arg.([]any)
			if len(list) == 0 {
				out = append(out, "FALSE")
				continue
			}
			alts := make([]string, 0, len(list))
			for _, v := range list {
				c, err := f.equal(parts, v)
				if err != nil {
					return "", err
				}
				alts = append(alts, c)
			}
			out = append(out, "("+strings.Join(alts, " OR ")+")")
		case resource.OpNe:
			c, err := f.equal(parts, arg)
			if err != nil {
				return "", err
			}
			out = append(out, "NOT "+c)
		case resource.OpExists:
			c := fmt.Sprintf("jsonb_path_exists(data, %s::jsonpath)", f.arg(jsonPath(parts)))
			if !cast.ToBool(arg) {
				c = "NOT " + c
			}
			out = append(out, c)
		default:
			return "", fmt.Errorf("%w: unsupported operator %s", resource.ErrInvalidQuery, op)
		}
	}
	return strings.Join(out, " AND "), nil
}

func (f *filter) equal(parts []string, value any) (string, error) {
	bits, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("%w: %v", resource.ErrInvalidQuery, err)
	}

	if resource.IsScalar(value) {
		vars, err := json.Marshal(map[string]json.RawMessage{"v": bits})
		if err != nil {
			return "", fmt.Errorf("%w: %v", resource.ErrInvalidQuery, err)
		}
		return fmt.Sprintf("jsonb_path_exists(data, %s::jsonpath, %s::jsonb)",
			f.arg(jsonPath(parts)+" ? (@ == $v)"), f.arg(string(vars))), nil
	}

	return fmt.Sprintf("COALESCE(data #> %s::text[] = %s::jsonb, FALSE)",
		f.arg(parts), f.arg(string(bits))), nil
}

// jsonPath строит путь вида $."a"."b"
func jsonPath(parts []string) string {
	var b strings.Builder
	b.WriteString("$")
	for _, p := range parts {
		b.WriteString(`."`)
		b.WriteString(pathEscaper.Replace(p))
		b.WriteString(`"`)
	}
	return b.String()
}
