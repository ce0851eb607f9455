package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompare(t *testing.T) {
	tests := []struct {
		name      string
		desired   Document
		existing  Document
		ignore    []string
		wantPaths []string
		wantPatch Document
	}{
		{
			name:      "identical",
			desired:   Document{"name": "A", "age": 3},
			existing:  Document{"name": "A", "age": float64(3)},
			wantPaths: []string{},
			wantPatch: Document{},
		},
		{
			name:      "extra existing fields are not a change",
			desired:   Document{"name": "A"},
			existing:  Document{"name": "A", "image": "x.png"},
			wantPaths: []string{},
			wantPatch: Document{},
		},
		{
			name:      "modified and added",
			desired:   Document{"name": "B", "gender": "female"},
			existing:  Document{"name": "A"},
			wantPaths: []string{"gender", "name"},
			wantPatch: Document{"name": "B", "gender": "female"},
		},
		{
			name:      "nested change only sends changed leaf",
			desired:   Document{"contact": Document{"email": "new@x", "phone": "1"}},
			existing:  Document{"contact": map[string]any{"email": "old@x", "phone": "1"}},
			wantPaths: []string{"contact.email"},
			wantPatch: Document{"contact": Document{"email": "new@x"}},
		},
		{
			name:      "server managed fields ignored",
			desired:   Document{"name": "A", "updated_at": "2020", "_links": Document{"self": "x"}},
			existing:  Document{"name": "A", "updated_at": "2024"},
			ignore:    []string{"updated_at", "_links"},
			wantPaths: []string{},
			wantPatch: Document{},
		},
		{
			name:      "lists compared as a whole",
			desired:   Document{"sources": []any{Document{"url": "a"}}},
			existing:  Document{"sources": []any{map[string]any{"url": "a"}, map[string]any{"url": "b"}}},
			wantPaths: []string{"sources"},
			wantPatch: Document{"sources": []any{map[string]any{"url": "a"}}},
		},
		{
			name:      "go slices are normalized before comparing",
			desired:   Document{"tags": []string{"a", "b"}},
			existing:  Document{"tags": []any{"a", "b"}},
			wantPaths: []string{},
			wantPatch: Document{},
		},
		{
			name:      "scalar replaced by document",
			desired:   Document{"birth": Document{"date": "1970"}},
			existing:  Document{"birth": "1970"},
			wantPaths: []string{"birth"},
			wantPatch: Document{"birth": map[string]any{"date": "1970"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diff := Compare(tt.desired, tt.existing, tt.ignore...)

			assert.Equal(t, tt.wantPaths, diff.Paths())
			assert.Equal(t, len(tt.wantPaths) == 0, diff.Empty())
			assert.True(t, Equal(tt.wantPatch, diff.Patch()), "patch: %s", diff.Patch())
		})
	}
}

func TestCompare_ChangeKinds(t *testing.T) {
	diff := Compare(Document{"a": 1, "b": 2}, Document{"a": 5})

	assert.Len(t, diff, 2)
	assert.Equal(t, KindModified, diff[0].Kind)
	assert.Equal(t, float64(5), diff[0].Old)
	assert.Equal(t, KindAdded, diff[1].Kind)
	assert.Nil(t, diff[1].Old)
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(1, float64(1)))
	assert.True(t, Equal(nil, nil))
	assert.True(t, Equal(Document{"a": []any{1}}, map[string]any{"a": []any{float64(1)}}))
	assert.False(t, Equal("1", 1))
	assert.False(t, Equal(Document{"a": 1}, Document{"a": 1, "b": 2}))
	assert.False(t, Equal([]any{1}, []any{1, 2}))
	assert.False(t, Equal(Document{}, []any{}))
}
