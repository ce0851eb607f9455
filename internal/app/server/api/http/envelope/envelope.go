// Package envelope описывает служебную обертку ответов хранилища:
// _status, _error, _issues, _items, _meta, _links.
package envelope

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

const (
	StatusOK  = "OK"
	StatusERR = "ERR"
)

type ErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Item - результат по одному документу массового запроса
type Item struct {
	Status string            `json:"_status"`
	Issues map[string]string `json:"_issues,omitempty"`
}

// Error - ответ с ошибкой. Реализует huma.StatusError, поэтому его можно
// возвращать из обработчиков как есть.
type Error struct {
	Status string            `json:"_status"`
	Err    ErrorBody         `json:"_error"`
	Issues map[string]string `json:"_issues,omitempty"`
	Items  []Item            `json:"_items,omitempty"`
}

func New(status int, message string) *Error {
	if message == "" {
		message = http.StatusText(status)
	}
	return &Error{
		Status: StatusERR,
		Err:    ErrorBody{Code: status, Message: message},
	}
}

// WithIssues - ошибка проверки одного документа
func WithIssues(status int, message string, issues map[string]string) *Error {
	e := New(status, message)
	e.Issues = issues
	return e
}

// WithItems - ошибка проверки массового запроса: по элементу на каждый документ
func WithItems(status int, message string, total int, issues map[int]map[string]string) *Error {
	e := New(status, message)
	e.Items = make([]Item, total)
	for i := range e.Items {
		e.Items[i] = Item{Status: StatusOK}
		if is, ok := issues[i]; ok {
			e.Items[i] = Item{Status: StatusERR, Issues: is}
		}
	}
	return e
}

func (e *Error) Error() string {
	if len(e.Issues) == 0 {
		return e.Err.Message
	}
	fields := make([]string, 0, len(e.Issues))
	for f := range e.Issues {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fmt.Sprintf("%s (%s)", e.Err.Message, strings.Join(fields, ", "))
}

func (e *Error) GetStatus() int {
	return e.Err.Code
}

// NewError подменяет huma.NewError: ошибки разбора параметров тоже уходят в конверте,
// замечания huma становятся _issues.
func NewError(status int, msg string, errs ...error) huma.StatusError {
	e := New(status, msg)
	for _, err := range errs {
		var detail *huma.ErrorDetail
		if !errors.As(err, &detail) {
			continue
		}
		if e.Issues == nil {
			e.Issues = make(map[string]string)
		}
		field := detail.Location
		for _, prefix := range []string{"body.", "query.", "path."} {
			field = strings.TrimPrefix(field, prefix)
		}
		e.Issues[field] = detail.Message
	}
	return e
}

// Write пишет ошибку напрямую, для middleware, где нет возврата из обработчика
func Write(ctx huma.Context, e *Error) error {
	ctx.SetHeader("Content-Type", "application/json")
	ctx.SetStatus(e.GetStatus())
	return json.NewEncoder(ctx.BodyWriter()).Encode(e)
}
