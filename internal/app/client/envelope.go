package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"

	"github.com/spf13/cast"

	"parlsync/internal/domain/document"
)

const (
	StatusOK  = "OK"
	StatusERR = "ERR"
)

// Параметры запроса, которые клиент обрабатывает сам
const (
	QueryAll        = "all"
	QueryPage       = "page"
	QueryMaxResults = "max_results"
	QueryWhere      = "where"
	QuerySort       = "sort"
)

// ErrorBody - содержимое _error
type ErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Meta - содержимое _meta в ответах со списками
type Meta struct {
	Total      int `json:"total"`
	Page       int `json:"page,omitempty"`
	MaxResults int `json:"max_results"`
}

type Link struct {
	Href  string `json:"href"`
	Title string `json:"title,omitempty"`
}

// Links - содержимое _links
type Links struct {
	Self   *Link `json:"self,omitempty"`
	Parent *Link `json:"parent,omitempty"`
	Next   *Link `json:"next,omitempty"`
	Prev   *Link `json:"prev,omitempty"`
	Last   *Link `json:"last,omitempty"`
}

// Envelope - разобранный ответ хранилища. Служебные поля доступны типизированно,
// исходный документ целиком лежит в Body.
type Envelope struct {
	Status     string              `json:"_status,omitempty"`
	Error      *ErrorBody          `json:"_error,omitempty"`
	Issues     document.Document   `json:"_issues,omitempty"`
	Items      []document.Document `json:"_items,omitempty"`
	Meta       *Meta               `json:"_meta,omitempty"`
	Links      *Links              `json:"_links,omitempty"`
	ID         string              `json:"-"`
	Body       document.Document   `json:"-"`
	HTTPStatus int                 `json:"-"`
}

// OK сообщает об успешном ответе
func (e *Envelope) OK() bool {
	return e.Status != StatusERR
}

// NextHref возвращает ссылку на следующую страницу или пустую строку
func (e *Envelope) NextHref() string {
	if e.Links == nil || e.Links.Next == nil {
		return ""
	}
	return e.Links.Next.Href
}

// ItemIDs возвращает id из _items ответа на массовое создание. Одиночный объект
// с id (так хранилище отвечает на список из одной записи) дает один id.
func (e *Envelope) ItemIDs() []string {
	if len(e.Items) == 0 {
		if e.ID != "" {
			return []string{e.ID}
		}
		return nil
	}
	return document.IDs(e.Items)
}

// itemIssues собирает замечания по записям массового запроса
func (e *Envelope) itemIssues() map[int]document.Document {
	out := make(map[int]document.Document)
	for i, item := range e.Items {
		if issues := item.GetDocument("_issues"); len(issues) > 0 {
			out[i] = issues
		}
	}
	return out
}

// decodeEnvelope разбирает тело ответа. Пустое тело считается успешным ответом без данных.
func decodeEnvelope(data []byte) (*Envelope, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return &Envelope{Status: StatusOK, Body: document.Document{}}, nil
	}

	body, err := document.FromBytes(data)
	if err != nil {
		return nil, err
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to decode envelope: %w", err)
	}
	env.ID = body.ID()
	env.Body = body
	return &env, nil
}

// parseResponse превращает HTTP-ответ в конверт или в ошибку из таксономии клиента
func parseResponse(rawURL string, statusCode int, data []byte) (*Envelope, error) {
	env, err := decodeEnvelope(data)
	if err != nil {
		if statusCode == http.StatusNotFound {
			return nil, &NotFoundError{URL: rawURL}
		}
		return nil, &APIError{
			URL:        rawURL,
			StatusCode: statusCode,
			Code:       statusCode,
			Message:    fmt.Sprintf("unexpected response: %s", truncate(string(data), 200)),
		}
	}
	env.HTTPStatus = statusCode

	if statusCode == http.StatusNotFound || (env.Error != nil && env.Error.Code == http.StatusNotFound) {
		return nil, &NotFoundError{URL: rawURL, Envelope: env}
	}

	if env.OK() && statusCode < http.StatusBadRequest {
		return env, nil
	}

	if len(env.Issues) > 0 {
		return nil, &ValidationError{URL: rawURL, Issues: env.Issues, Envelope: env}
	}
	if issues := env.itemIssues(); len(issues) > 0 {
		return nil, &ValidationError{URL: rawURL, ItemIssues: issues, Envelope: env}
	}

	apiErr := &APIError{URL: rawURL, StatusCode: statusCode, Code: statusCode, Envelope: env}
	if env.Error != nil {
		apiErr.Code = env.Error.Code
		apiErr.Message = env.Error.Message
	}
	return nil, apiErr
}

// Query - параметры find/get. Значения кодируются в JSON, кроме строкового sort.
type Query map[string]any

// Clone возвращает поверхностную копию
func (q Query) Clone() Query {
	out := make(Query, len(q))
	for k, v := range q {
		out[k] = v
	}
	return out
}

// All сообщает, запрошена ли выборка всех страниц
func (q Query) All() bool {
	v, ok := q[QueryAll]
	return ok && cast.ToBool(v)
}

// Encode кодирует параметры в строку запроса (ключи отсортированы)
func (q Query) Encode() (string, error) {
	if len(q) == 0 {
		return "", nil
	}

	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := url.Values{}
	for _, k := range keys {
		v := q[k]
		if s, ok := v.(string); ok && k == QuerySort {
			values.Set(k, s)
			continue
		}
		bits, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("failed to encode query param %q: %w", k, err)
		}
		values.Set(k, string(bits))
	}
	return values.Encode(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
