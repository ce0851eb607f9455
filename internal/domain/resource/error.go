package resource

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("resource not found")
	ErrDuplicateID  = errors.New("duplicate id")
	ErrInvalidQuery = errors.New("invalid query")
	ErrEmptyRequest = errors.New("empty request")
	ErrValidation   = errors.New("validation failed")

	// ErrInvalidCollection отдается как отсутствующий ресурс
	ErrInvalidCollection = fmt.Errorf("invalid collection: %w", ErrNotFound)
)

// Issues - замечания к полям документа (поле -> описание)
type Issues map[string]string

// ValidationError - замечания по документам запроса, ключ - индекс документа
type ValidationError struct {
	Items map[int]Issues
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%d document(s) contain(s) error(s)", len(e.Items))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
