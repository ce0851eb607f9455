package resource

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"

	"parlsync/internal/domain/document"
)

// Служебные поля, которые хранилище добавляет к документу при выдаче
const (
	FieldCreated = "_created"
	FieldUpdated = "_updated"
	FieldETag    = "_etag"
	FieldLinks   = "_links"
)

// Record - документ коллекции вместе с серверными атрибутами.
// Data всегда содержит поле id, совпадающее с ID.
type Record struct {
	Collection string
	ID         string
	Data       document.Document
	Created    time.Time
	Updated    time.Time
	ETag       string
}

// View возвращает документ в том виде, в каком его отдает API
func (r *Record) View() document.Document {
	doc := r.Data.Clone()
	if doc == nil {
		doc = document.Document{}
	}
	doc[document.FieldID] = r.ID
	doc[FieldCreated] = r.Created.UTC().Format(http.TimeFormat)
	doc[FieldUpdated] = r.Updated.UTC().Format(http.TimeFormat)
	doc[FieldETag] = r.ETag
	return doc
}

// Clone возвращает независимую копию записи
func (r *Record) Clone() *Record {
	out := *r
	out.Data = r.Data.Clone()
	return &out
}

// Page - одна страница результата поиска
type Page struct {
	Items      []Record
	Total      int
	Page       int
	MaxResults int
}

// HasNext сообщает, есть ли записи после этой страницы
func (p Page) HasNext() bool {
	return p.Page*p.MaxResults < p.Total
}

// LastPage возвращает номер последней страницы (не меньше 1)
func (p Page) LastPage() int {
	if p.Total == 0 || p.MaxResults == 0 {
		return 1
	}
	return (p.Total + p.MaxResults - 1) / p.MaxResults
}

func etag(data document.Document) string {
	sum := sha256.Sum256(data.Bytes())
	return hex.EncodeToString(sum[:])
}
