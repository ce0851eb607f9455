package client

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"

	"parlsync/internal/domain/document"
)

var (
	ErrNetwork        = errors.New("network error")
	ErrNotFound       = errors.New("resource not found")
	ErrValidation     = errors.New("validation failed")
	ErrAPI            = errors.New("api error")
	ErrRollbackFailed = errors.New("rollback failed, manual intervention required")
	ErrIDMismatch     = errors.New("embedded id does not match target id")
	ErrPartialBatch   = errors.New("bulk create returned fewer ids than records sent")
	ErrAmbiguous      = errors.New("more than one record matches the filter")
	ErrTxBroken       = errors.New("unit of work is broken after a failed rollback")
	ErrUnknownTx      = errors.New("unit of work not found in journal")
)

// NetworkError - обмен с хранилищем не завершился (соединение, DNS, таймаут)
type NetworkError struct {
	Method string
	URL    string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

// NotFoundError - хранилище сообщило об отсутствии ресурса
type NotFoundError struct {
	URL      string
	Envelope *Envelope
}

func (e *NotFoundError) Error() string {
	return "not found: " + e.URL
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ValidationError - хранилище отклонило запись. Для одиночной записи заполнен Issues,
// для массового создания ItemIssues (индекс записи в запросе -> замечания).
type ValidationError struct {
	URL        string
	Issues     document.Document
	ItemIssues map[int]document.Document
	Envelope   *Envelope
}

func (e *ValidationError) Error() string {
	if len(e.ItemIssues) > 0 {
		idx := lo.Keys(e.ItemIssues)
		sort.Ints(idx)
		parts := make([]string, 0, len(idx))
		for _, i := range idx {
			parts = append(parts, fmt.Sprintf("#%d %s", i, e.ItemIssues[i]))
		}
		return "validation errors: " + strings.Join(parts, "; ")
	}
	return "validation errors: " + e.Issues.String()
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// APIError - любой другой ответ с ошибкой (авторизация, ошибка сервера, неожиданный формат)
type APIError struct {
	URL        string
	StatusCode int
	Code       int
	Message    string
	Envelope   *Envelope
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error %d at %s", e.Code, e.URL)
	}
	return fmt.Sprintf("api error %d at %s: %s", e.Code, e.URL, e.Message)
}

func (e *APIError) Is(target error) bool { return target == ErrAPI }

// RollbackError - компенсирующее удаление не удалось, хранилище может быть несогласованным
type RollbackError struct {
	TxID      string
	Failed    ChangeRecord
	Remaining []ChangeRecord
	Err       error
}

func (e *RollbackError) Error() string {
	return fmt.Sprintf("rollback of %s failed at %s/%s (%d records left), store may be inconsistent: %v",
		e.TxID, e.Failed.Collection, e.Failed.ID, len(e.Remaining), e.Err)
}

func (e *RollbackError) Unwrap() error { return e.Err }

func (e *RollbackError) Is(target error) bool { return target == ErrRollbackFailed }

// IDMismatchError - id внутри записи не совпадает с id, который обновляется
type IDMismatchError struct {
	Collection string
	TargetID   string
	EmbeddedID string
}

func (e *IDMismatchError) Error() string {
	return fmt.Sprintf("update %s/%s: embedded id %q differs", e.Collection, e.TargetID, e.EmbeddedID)
}

func (e *IDMismatchError) Is(target error) bool { return target == ErrIDMismatch }

// PartialBatchError - часть пакета сохранена, но хранилище вернуло не все id
type PartialBatchError struct {
	Collection string
	Sent       int
	IDs        []string
}

func (e *PartialBatchError) Error() string {
	return fmt.Sprintf("bulk create in %s: sent %d records, got %d ids", e.Collection, e.Sent, len(e.IDs))
}

func (e *PartialBatchError) Is(target error) bool { return target == ErrPartialBatch }
