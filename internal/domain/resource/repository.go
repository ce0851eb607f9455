package resource

import "context"

// Repository - хранилище документов по коллекциям
type Repository interface {
	// Insert сохраняет записи целиком или не сохраняет ни одной.
	// Занятый id дает ErrDuplicateID.
	Insert(ctx context.Context, records ...*Record) error
	Get(ctx context.Context, collection, id string) (*Record, error)
	Replace(ctx context.Context, record *Record) error
	Delete(ctx context.Context, collection, id string) error
	// Find возвращает страницу записей и общее число подходящих под условие
	Find(ctx context.Context, collection string, q Query) ([]Record, int, error)
	Ping(ctx context.Context) error
}
