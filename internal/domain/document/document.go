package document

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cast"
)

// FieldID поле с идентификатором записи
const FieldID = "id"

// Document - бессхемная запись (ключ -> значение), как ее отдает и принимает хранилище.
// Значения: строки, числа, bool, вложенные документы и списки.
type Document map[string]any

// New создает документ из произвольного JSON-совместимого значения
func New(value any) (Document, error) {
	switch v := value.(type) {
	case Document:
		return v, nil
	case map[string]any:
		return Document(v), nil
	}

	bits, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to encode value: %w", err)
	}
	return FromBytes(bits)
}

// FromBytes разбирает JSON-объект в документ
func FromBytes(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	if doc == nil {
		doc = Document{}
	}
	return doc, nil
}

// ID возвращает значение поля id или пустую строку
func (d Document) ID() string {
	v, ok := d[FieldID]
	if !ok || v == nil {
		return ""
	}
	return cast.ToString(v)
}

// HasID проверяет, задан ли у документа id
func (d Document) HasID() bool {
	return d.ID() != ""
}

// Get возвращает значение по пути с точками ("sources.url")
func (d Document) Get(path string) any {
	var current any = map[string]any(d)
	for _, part := range strings.Split(path, ".") {
		m, ok := asMap(current)
		if !ok {
			return nil
		}
		current, ok = m[part]
		if !ok {
			return nil
		}
	}
	return current
}

func (d Document) GetString(path string) string {
	return cast.ToString(d.Get(path))
}

func (d Document) GetInt(path string) int {
	return cast.ToInt(d.Get(path))
}

func (d Document) GetBool(path string) bool {
	return cast.ToBool(d.Get(path))
}

// GetDocument возвращает вложенный документ по пути или nil
func (d Document) GetDocument(path string) Document {
	m, ok := asMap(d.Get(path))
	if !ok {
		return nil
	}
	return Document(m)
}

// GetArray возвращает список по пути
func (d Document) GetArray(path string) []any {
	return cast.ToSlice(d.Get(path))
}

// Clone делает глубокую копию документа
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	return cloneValue(map[string]any(d)).(Document)
}

// Without возвращает копию документа без указанных полей верхнего уровня
func (d Document) Without(fields ...string) Document {
	out := d.Clone()
	if out == nil {
		out = Document{}
	}
	for _, f := range fields {
		delete(out, f)
	}
	return out
}

// Merge рекурсивно накладывает with поверх документа: вложенные документы сливаются,
// остальные значения заменяются.
func (d Document) Merge(with Document) {
	for k, v := range with {
		src, srcOK := asMap(v)
		dst, dstOK := asMap(d[k])
		if srcOK && dstOK {
			Document(dst).Merge(Document(src))
			d[k] = Document(dst)
			continue
		}
		d[k] = cloneValue(v)
	}
}

// Normalize приводит значения к виду, в котором они приходят из JSON
// (числа в float64, вложенные структуры в map[string]any и []any).
func (d Document) Normalize() (Document, error) {
	bits, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize document: %w", err)
	}
	return FromBytes(bits)
}

// Bytes возвращает документ в JSON
func (d Document) Bytes() []byte {
	bits, err := json.Marshal(d)
	if err != nil {
		return []byte("{}")
	}
	return bits
}

func (d Document) String() string {
	return string(d.Bytes())
}

// IDs извлекает непустые id документов с сохранением порядка
func IDs(docs []Document) []string {
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		if id := doc.ID(); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case Document:
		return m, true
	case map[string]any:
		return m, true
	default:
		return nil, false
	}
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case Document:
		out := make(Document, len(val))
		for k, item := range val {
			out[k] = cloneValue(item)
		}
		return out
	case map[string]any:
		out := make(Document, len(val))
		for k, item := range val {
			out[k] = cloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return val
	}
}
