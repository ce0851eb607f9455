package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/lo"

	"parlsync/internal/domain/document"
)

// Mode - что делать с записью, которая уже есть в хранилище
type Mode string

const (
	ModeUpdate Mode = "update"
	ModeSkip   Mode = "skip"
)

// ParseMode разбирает режим сверки; пустая строка означает update
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeUpdate:
		return ModeUpdate, nil
	case ModeSkip:
		return ModeSkip, nil
	default:
		return "", fmt.Errorf("unknown mode %q", s)
	}
}

// ReconcileResult - id записей по принятому решению
type ReconcileResult struct {
	Created []string `json:"created"`
	Updated []string `json:"updated"`
	Skipped []string `json:"skipped"`
}

// Writes возвращает число выполненных записей
func (r *ReconcileResult) Writes() int {
	return len(r.Created) + len(r.Updated)
}

func (r *ReconcileResult) add(other *ReconcileResult) {
	r.Created = append(r.Created, other.Created...)
	r.Updated = append(r.Updated, other.Updated...)
	r.Skipped = append(r.Skipped, other.Skipped...)
}

// CreateOrUpdate создает отсутствующие записи и обновляет изменившиеся
func (t *Tx) CreateOrUpdate(ctx context.Context, collection string, docs ...document.Document) (*ReconcileResult, error) {
	return t.Reconcile(ctx, collection, ModeUpdate, docs...)
}

// CreateOrSkip создает только отсутствующие записи
func (t *Tx) CreateOrSkip(ctx context.Context, collection string, docs ...document.Document) (*ReconcileResult, error) {
	return t.Reconcile(ctx, collection, ModeSkip, docs...)
}

// Reconcile решает для каждой записи: создать, обновить или пропустить
func (t *Tx) Reconcile(ctx context.Context, collection string, mode Mode, docs ...document.Document) (*ReconcileResult, error) {
	result := &ReconcileResult{}
	if len(docs) == 0 {
		t.log.Warn("Нечего сверять", "collection", collection)
		return result, nil
	}
	if err := t.checkWritable(); err != nil {
		return result, err
	}

	if len(docs) == 1 {
		return result, t.reconcileOne(ctx, collection, mode, docs[0], result)
	}

	existing, err := t.lookup(ctx, collection, document.IDs(docs))
	if err != nil {
		return result, err
	}

	missing := make([]document.Document, 0, len(docs))
	for _, doc := range docs {
		current, ok := existing[doc.ID()]
		if !doc.HasID() || !ok {
			missing = append(missing, doc)
			continue
		}
		if err := t.applyExisting(ctx, collection, mode, doc, current, result); err != nil {
			return result, err
		}
	}

	if len(missing) > 0 {
		ids, err := t.CreateMany(ctx, collection, missing)
		result.Created = append(result.Created, ids...)
		if err != nil {
			return result, err
		}
	}

	return result, nil
}

// reconcileOne проверяет одну запись через get
func (t *Tx) reconcileOne(ctx context.Context, collection string, mode Mode, doc document.Document, result *ReconcileResult) error {
	if !doc.HasID() {
		id, err := t.Create(ctx, collection, doc)
		if err != nil {
			return err
		}
		if id != "" {
			result.Created = append(result.Created, id)
		}
		return nil
	}

	current, err := t.api.Get(ctx, collection, doc.ID(), nil)
	if errors.Is(err, ErrNotFound) {
		id, err := t.Create(ctx, collection, doc)
		if err != nil {
			return err
		}
		result.Created = append(result.Created, id)
		return nil
	}
	if err != nil {
		return err
	}

	return t.applyExisting(ctx, collection, mode, doc, current, result)
}

// applyExisting обновляет существующую запись только измененными полями
func (t *Tx) applyExisting(ctx context.Context, collection string, mode Mode, doc, current document.Document, result *ReconcileResult) error {
	id := doc.ID()
	if mode == ModeSkip {
		result.Skipped = append(result.Skipped, id)
		return nil
	}

	diff := document.Compare(doc.Without(document.FieldID), current, ServerManagedFields...)
	if diff.Empty() {
		result.Skipped = append(result.Skipped, id)
		return nil
	}

	t.log.Debug("Запись изменилась", "collection", collection, "id", id, "fields", diff.Paths())

	if err := t.Update(ctx, collection, id, diff.Patch(), false); err != nil {
		return err
	}
	result.Updated = append(result.Updated, id)
	return nil
}

// lookup находит существующие записи по id пакетами не больше LookupBatchSize
func (t *Tx) lookup(ctx context.Context, collection string, ids []string) (map[string]document.Document, error) {
	existing := make(map[string]document.Document, len(ids))
	for _, batch := range lo.Chunk(lo.Uniq(ids), t.api.cfg.LookupBatchSize) {
		env, err := t.api.Find(ctx, collection, Query{
			QueryWhere:      document.Document{document.FieldID: document.Document{"$in": batch}},
			QueryMaxResults: len(batch),
		})
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		for _, item := range env.Items {
			existing[item.ID()] = item
		}
	}
	return existing, nil
}

// GetOrCreate возвращает единственную запись по фильтру или создает ее из шаблона
func (t *Tx) GetOrCreate(ctx context.Context, collection string, filter, template document.Document) (document.Document, error) {
	env, err := t.api.Find(ctx, collection, Query{QueryWhere: filter})
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if env != nil {
		switch {
		case len(env.Items) > 1:
			return nil, fmt.Errorf("%s where %s: %w", collection, filter, ErrAmbiguous)
		case len(env.Items) == 1:
			return env.Items[0], nil
		}
	}

	doc := template.Clone()
	if doc == nil {
		doc = document.Document{}
	}
	id, err := t.Create(ctx, collection, doc)
	if err != nil {
		return nil, err
	}
	if id != "" {
		doc[document.FieldID] = id
	}
	return doc, nil
}
