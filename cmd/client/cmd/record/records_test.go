package record

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parlsync/internal/app/client"
	"parlsync/internal/domain/document"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "docs.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestReadDocuments(t *testing.T) {
	docs, err := readDocuments(writeFile(t, `{"id": "p1", "name": "Anna"}`))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "p1", docs[0].ID())

	docs, err = readDocuments(writeFile(t, `[{"id": "p1"}, {"id": "p2"}]`))
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2"}, document.IDs(docs))

	_, err = readDocuments(writeFile(t, `"text"`))
	assert.Error(t, err)

	_, err = readDocuments(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestBuildQuery(t *testing.T) {
	findWhere, findSort, findMaxResults, findPage, findAll = `{"age": 30}`, "-age", 10, 2, true
	t.Cleanup(func() {
		findWhere, findSort, findMaxResults, findPage, findAll = "", "", 0, 0, false
	})

	query, err := buildQuery()
	require.NoError(t, err)
	assert.Equal(t, document.Document{"age": float64(30)}, query[client.QueryWhere])
	assert.Equal(t, "-age", query[client.QuerySort])
	assert.Equal(t, 10, query[client.QueryMaxResults])
	assert.Equal(t, 2, query[client.QueryPage])
	assert.Equal(t, true, query[client.QueryAll])

	findWhere = `{broken`
	_, err = buildQuery()
	assert.Error(t, err)
}

func TestPrintTable(t *testing.T) {
	env := &client.Envelope{
		Items: []document.Document{
			{"id": "p1", "name": "Anna", "_updated": "Wed, 01 May 2024 10:00:00 GMT"},
			{"id": "p2", "name": "Jan"},
		},
		Meta: &client.Meta{Total: 2, Page: 1, MaxResults: 25},
	}

	var out bytes.Buffer
	require.NoError(t, printTable(&out, env, []string{"name"}))
	assert.Contains(t, out.String(), "Anna")
	assert.Contains(t, out.String(), "Jan")
	assert.Contains(t, out.String(), "Всего: 2")

	out.Reset()
	require.NoError(t, printTable(&out, &client.Envelope{}, nil))
	assert.Contains(t, out.String(), "Записи не найдены")
}
