package resource

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cast"

	"parlsync/internal/domain/document"
)

// Операторы условий where
const (
	OpIn     = "$in"
	OpNe     = "$ne"
	OpExists = "$exists"
)

type SortField struct {
	Path string
	Desc bool
}

// Query - разобранные параметры поиска. Page считается с 1.
type Query struct {
	Where      document.Document
	Sort       []SortField
	Page       int
	MaxResults int
}

func (q Query) Offset() int {
	if q.Page <= 1 {
		return 0
	}
	return (q.Page - 1) * q.MaxResults
}

// ParseWhere разбирает JSON-условие вида {"a.b": 1, "id": {"$in": [...]}}
func ParseWhere(raw string) (document.Document, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	where, err := document.FromBytes([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: where: %v", ErrInvalidQuery, err)
	}
	if err := ValidateWhere(where); err != nil {
		return nil, err
	}
	return where, nil
}

// ValidateWhere проверяет имена полей и операторы условия
func ValidateWhere(where document.Document) error {
	for path, cond := range where {
		if path == "" || strings.HasPrefix(path, "$") {
			return fmt.Errorf("%w: unsupported field %q", ErrInvalidQuery, path)
		}
		ops, ok := Operators(cond)
		if !ok {
			continue
		}
		for op, arg := range ops {
			switch op {
			case OpIn:
				if _, isList := arg.([]any); !isList {
					return fmt.Errorf("%w: %s of %q must be a list", ErrInvalidQuery, op, path)
				}
			case OpExists:
				if _, isBool := arg.(bool); !isBool {
					return fmt.Errorf("%w: %s of %q must be a boolean", ErrInvalidQuery, op, path)
				}
			case OpNe:
			default:
				return fmt.Errorf("%w: unsupported operator %s", ErrInvalidQuery, op)
			}
		}
	}
	return nil
}

// ParseSort разбирает список полей через запятую, "-" перед полем - по убыванию
func ParseSort(raw string) ([]SortField, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	var fields []SortField
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		field := SortField{Path: strings.TrimLeft(part, "+-")}
		field.Desc = strings.HasPrefix(part, "-")
		if field.Path == "" {
			return nil, fmt.Errorf("%w: sort %q", ErrInvalidQuery, raw)
		}
		fields = append(fields, field)
	}
	return fields, nil
}

// Operators возвращает операторы условия, если условие задано через них
func Operators(cond any) (map[string]any, bool) {
	var m map[string]any
	switch c := cond.(type) {
	case document.Document:
		m = c
	case map[string]any:
		m = c
	default:
		return nil, false
	}
	if len(m) == 0 {
		return nil, false
	}
	for k := range m {
		if !strings.HasPrefix(k, "$") {
			return nil, false
		}
	}
	return m, true
}

// IsScalar сообщает, является ли значение JSON-скаляром (или null)
func IsScalar(v any) bool {
	switch v.(type) {
	case nil, string, bool, float64, float32, int, int32, int64, json.Number:
		return true
	default:
		return false
	}
}

// Match проверяет документ на соответствие условию. Путь с точками проходит
// сквозь списки: условие выполняется, если подходит хотя бы один элемент.
func Match(doc document.Document, where document.Document) bool {
	for path, cond := range where {
		values := resolve(map[string]any(doc), strings.Split(path, "."))
		if !matchCondition(values, cond) {
			return false
		}
	}
	return true
}

func matchCondition(values []any, cond any) bool {
	ops, ok := Operators(cond)
	if !ok {
		return containsEqual(values, cond)
	}

	for op, arg := range ops {
		switch op {
		case OpIn:
			found := false
			for _, want := range cast.ToSlice(arg) {
				if containsEqual(values, want) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		case OpNe:
			if containsEqual(values, arg) {
				return false
			}
		case OpExists:
			if (len(values) > 0) != cast.ToBool(arg) {
				return false
			}
		}
	}
	return true
}

func containsEqual(values []any, want any) bool {
	for _, v := range values {
		if document.Equal(v, want) {
			return true
		}
		if list, ok := v.([]any); ok && IsScalar(want) {
			for _, item := range list {
				if document.Equal(item, want) {
					return true
				}
			}
		}
	}
	return false
}

func resolve(value any, parts []string) []any {
	if len(parts) == 0 {
		return []any{value}
	}

	switch v := value.(type) {
	case document.Document:
		return resolve(map[string]any(v), parts)
	case map[string]any:
		next, ok := v[parts[0]]
		if !ok {
			return nil
		}
		return resolve(next, parts[1:])
	case []any:
		var out []any
		for _, item := range v {
			out = append(out, resolve(item, parts)...)
		}
		return out
	default:
		return nil
	}
}

// SortRecords упорядочивает записи по полям. Без полей порядок не меняется.
func SortRecords(records []Record, fields []SortField) {
	if len(fields) == 0 {
		return
	}
	sort.SliceStable(records, func(i, j int) bool {
		for _, f := range fields {
			c := CompareValues(records[i].Data.Get(f.Path), records[j].Data.Get(f.Path))
			if c == 0 {
				continue
			}
			if f.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

// CompareValues сравнивает JSON-значения в порядке
// null < строка < число < bool < список < объект
func CompareValues(a, b any) int {
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}

	switch ra {
	case rankString:
		return strings.Compare(cast.ToString(a), cast.ToString(b))
	case rankNumber:
		fa, fb := cast.ToFloat64(a), cast.ToFloat64(b)
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	case rankBool:
		ba, bb := cast.ToBool(a), cast.ToBool(b)
		switch {
		case ba == bb:
			return 0
		case !ba:
			return -1
		}
		return 1
	case rankNull:
		return 0
	default:
		ja, _ := json.Marshal(a)
		jb, _ := json.Marshal(b)
		return strings.Compare(string(ja), string(jb))
	}
}

const (
	rankNull = iota
	rankString
	rankNumber
	rankBool
	rankList
	rankObject
)

func typeRank(v any) int {
	switch v.(type) {
	case nil:
		return rankNull
	case string:
		return rankString
	case bool:
		return rankBool
	case float64, float32, int, int32, int64, json.Number:
		return rankNumber
	case []any:
		return rankList
	default:
		return rankObject
	}
}
