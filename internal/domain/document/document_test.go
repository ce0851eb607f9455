package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocument_Accessors(t *testing.T) {
	doc, err := FromBytes([]byte(`{
		"id": "p1",
		"name": "Anna",
		"age": 42,
		"active": true,
		"sources": {"url": "http://example.org", "note": "web"},
		"tags": ["a", "b"]
	}`))
	require.NoError(t, err)

	assert.Equal(t, "p1", doc.ID())
	assert.True(t, doc.HasID())
	assert.Equal(t, "Anna", doc.GetString("name"))
	assert.Equal(t, 42, doc.GetInt("age"))
	assert.True(t, doc.GetBool("active"))
	assert.Equal(t, "http://example.org", doc.GetString("sources.url"))
	assert.Equal(t, Document{"url": "http://example.org", "note": "web"}, doc.GetDocument("sources"))
	assert.Len(t, doc.GetArray("tags"), 2)
	assert.Nil(t, doc.Get("sources.missing.deep"))
	assert.Nil(t, doc.GetDocument("name"))
}

func TestDocument_IDNumeric(t *testing.T) {
	doc := Document{"id": 15}
	assert.Equal(t, "15", doc.ID())

	assert.Equal(t, "", Document{"name": "x"}.ID())
	assert.Equal(t, "", Document{"id": nil}.ID())
}

func TestDocument_CloneIsDeep(t *testing.T) {
	orig := Document{
		"name":    "A",
		"sources": map[string]any{"url": "u1"},
		"list":    []any{map[string]any{"k": "v"}},
	}

	clone := orig.Clone()
	clone.GetDocument("sources")["url"] = "u2"
	clone.GetArray("list")[0].(Document)["k"] = "changed"

	assert.Equal(t, "u1", orig.GetString("sources.url"))
	assert.Equal(t, "v", orig.GetArray("list")[0].(map[string]any)["k"])
}

func TestDocument_Without(t *testing.T) {
	doc := Document{"id": "e1", "name": "X"}

	out := doc.Without("id")

	assert.Equal(t, Document{"name": "X"}, out)
	assert.Equal(t, "e1", doc.ID(), "source document must stay untouched")
}

func TestDocument_Merge(t *testing.T) {
	doc := Document{
		"name":    "A",
		"contact": map[string]any{"email": "a@x", "phone": "1"},
		"tags":    []any{"x"},
	}

	doc.Merge(Document{
		"contact": Document{"email": "b@x"},
		"tags":    []any{"y"},
		"new":     1,
	})

	assert.Equal(t, "b@x", doc.GetString("contact.email"))
	assert.Equal(t, "1", doc.GetString("contact.phone"))
	assert.Equal(t, []any{"y"}, doc["tags"])
	assert.Equal(t, 1, doc["new"])
}

func TestNew(t *testing.T) {
	type person struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	doc, err := New(person{ID: "p1", Name: "A"})
	require.NoError(t, err)
	assert.Equal(t, Document{"id": "p1", "name": "A"}, doc)

	doc, err = New(map[string]any{"a": 1})
	require.NoError(t, err)
	assert.Equal(t, 1, doc["a"])

	_, err = New(func() {})
	assert.Error(t, err)
}

func TestFromBytes_Invalid(t *testing.T) {
	_, err := FromBytes([]byte(`[1,2]`))
	assert.Error(t, err)

	doc, err := FromBytes([]byte(`null`))
	require.NoError(t, err)
	assert.Empty(t, doc)
}

func TestIDs(t *testing.T) {
	docs := []Document{{"id": "a"}, {"name": "no id"}, {"id": "b"}}
	assert.Equal(t, []string{"a", "b"}, IDs(docs))
}
