package resource

import (
	"fmt"
	"unicode"
)

const (
	MinCollectionLen = 1
	MaxCollectionLen = 64
)

// ValidateCollection проверяет имя коллекции из пути запроса
func ValidateCollection(name string) error {
	if len(name) < MinCollectionLen {
		return fmt.Errorf("%w: collection name is empty", ErrInvalidCollection)
	}

	if len(name) > MaxCollectionLen {
		return fmt.Errorf("%w: collection name must be at most %d characters", ErrInvalidCollection, MaxCollectionLen)
	}

	for i, r := range name {
		if i == 0 && (r == '_' || r == '-') {
			return fmt.Errorf("%w: collection name must start with a letter or digit", ErrInvalidCollection)
		}
		if r > unicode.MaxASCII || (!unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '-') {
			return fmt.Errorf("%w: collection name can only contain letters, digits, '_', '-'", ErrInvalidCollection)
		}
	}

	return nil
}
