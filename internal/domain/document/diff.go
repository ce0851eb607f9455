package document

import (
	"reflect"
	"sort"
	"strings"

	"github.com/spf13/cast"
)

// Kind тип изменения поля
type Kind string

const (
	KindAdded    Kind = "add"
	KindModified Kind = "replace"
)

// Change - изменение одного листового поля
type Change struct {
	Path []string
	Kind Kind
	Old  any
	New  any
}

// PathString возвращает путь поля через точку
func (c Change) PathString() string {
	return strings.Join(c.Path, ".")
}

// Diff - набор изменений, которые нужно применить к существующей записи,
// чтобы она совпала с желаемой.
type Diff []Change

// Empty сообщает, что записи совпадают
func (d Diff) Empty() bool {
	return len(d) == 0
}

// Paths возвращает пути измененных полей
func (d Diff) Paths() []string {
	paths := make([]string, len(d))
	for i, c := range d {
		paths[i] = c.PathString()
	}
	return paths
}

// Patch собирает частичный документ только из новых значений.
// Вложенные документы содержат только измененные поля.
func (d Diff) Patch() Document {
	patch := Document{}
	for _, c := range d {
		node := patch
		for _, part := range c.Path[:len(c.Path)-1] {
			next, ok := node[part].(Document)
			if !ok {
				next = Document{}
				node[part] = next
			}
			node = next
		}
		node[c.Path[len(c.Path)-1]] = cloneValue(c.New)
	}
	return patch
}

// Compare рекурсивно сравнивает желаемую запись с существующей.
// Учитываются только поля желаемой записи: поля, которые есть лишь в существующей,
// изменением не считаются. Поля верхнего уровня из ignore пропускаются.
func Compare(desired, existing Document, ignore ...string) Diff {
	if norm, err := desired.Normalize(); err == nil {
		desired = norm
	}
	if norm, err := existing.Normalize(); err == nil {
		existing = norm
	}

	skip := make(map[string]struct{}, len(ignore))
	for _, f := range ignore {
		skip[f] = struct{}{}
	}

	var diff Diff
	compareMaps(desired, existing, nil, skip, &diff)
	return diff
}

func compareMaps(desired, existing map[string]any, path []string, skip map[string]struct{}, diff *Diff) {
	keys := make([]string, 0, len(desired))
	for k := range desired {
		if _, ok := skip[k]; ok {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		fieldPath := append(append([]string{}, path...), k)
		want := desired[k]
		have, present := existing[k]

		if !present {
			*diff = append(*diff, Change{Path: fieldPath, Kind: KindAdded, New: want})
			continue
		}

		wantMap, wantIsMap := asMap(want)
		haveMap, haveIsMap := asMap(have)
		if wantIsMap && haveIsMap {
			// во вложенных документах служебные поля не пропускаются
			compareMaps(wantMap, haveMap, fieldPath, nil, diff)
			continue
		}

		if !Equal(want, have) {
			*diff = append(*diff, Change{Path: fieldPath, Kind: KindModified, Old: have, New: want})
		}
	}
}

// Equal сравнивает два JSON-значения структурно: документы по набору ключей,
// списки поэлементно, числа по значению.
func Equal(a, b any) bool {
	aMap, aIsMap := asMap(a)
	bMap, bIsMap := asMap(b)
	if aIsMap || bIsMap {
		if !aIsMap || !bIsMap || len(aMap) != len(bMap) {
			return false
		}
		for k, av := range aMap {
			bv, ok := bMap[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	}

	aList, aIsList := a.([]any)
	bList, bIsList := b.([]any)
	if aIsList || bIsList {
		if !aIsList || !bIsList || len(aList) != len(bList) {
			return false
		}
		for i := range aList {
			if !Equal(aList[i], bList[i]) {
				return false
			}
		}
		return true
	}

	if isNumber(a) && isNumber(b) {
		return cast.ToFloat64(a) == cast.ToFloat64(b)
	}

	return reflect.DeepEqual(a, b)
}

func isNumber(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	default:
		return false
	}
}
