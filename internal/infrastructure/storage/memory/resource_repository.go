package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/samber/lo"
	"golang.org/x/exp/slog"

	"parlsync/internal/domain/resource"
)

type collection struct {
	order   []string
	records map[string]*resource.Record
}

// ResourceRepository хранит документы в памяти процесса, порядок выдачи - порядок вставки
type ResourceRepository struct {
	mu          sync.RWMutex
	collections map[string]*collection
	log         *slog.Logger
}

func NewResourceRepository(log *slog.Logger) *ResourceRepository {
	return &ResourceRepository{
		collections: make(map[string]*collection),
		log:         log.With("component", "memory_resource_repository"),
	}
}

func (r *ResourceRepository) Insert(_ context.Context, records ...*resource.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]struct{}, len(records))
	for _, rec := range records {
		key := rec.Collection + "/" + rec.ID
		_, taken := r.lookup(rec.Collection, rec.ID)
		if _, dup := seen[key]; dup || taken {
			return fmt.Errorf("%w: %s", resource.ErrDuplicateID, key)
		}
		seen[key] = struct{}{}
	}

	for _, rec := range records {
		c := r.collection(rec.Collection)
		c.records[rec.ID] = rec.Clone()
		c.order = append(c.order, rec.ID)
	}
	r.log.Debug("records inserted", "count", len(records))
	return nil
}

func (r *ResourceRepository) Get(_ context.Context, name, id string) (*resource.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.lookup(name, id)
	if !ok {
		return nil, resource.ErrNotFound
	}
	return rec.Clone(), nil
}

func (r *ResourceRepository) Replace(_ context.Context, rec *resource.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.lookup(rec.Collection, rec.ID); !ok {
		return resource.ErrNotFound
	}
	r.collections[rec.Collection].records[rec.ID] = rec.Clone()
	return nil
}

func (r *ResourceRepository) Delete(_ context.Context, name, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.lookup(name, id); !ok {
		return resource.ErrNotFound
	}
	c := r.collections[name]
	delete(c.records, id)
	c.order = lo.Without(c.order, id)
	return nil
}

func (r *ResourceRepository) Find(_ context.Context, name string, q resource.Query) ([]resource.Record, int, error) {
	r.mu.RLock()
	c, ok := r.collections[name]
	var matched []resource.Record
	if ok {
		for _, id := range c.order {
			rec := c.records[id]
			if resource.Match(rec.Data, q.Where) {
				matched = append(matched, *rec.Clone())
			}
		}
	}
	r.mu.RUnlock()

	resource.SortRecords(matched, q.Sort)

	total := len(matched)
	offset := min(q.Offset(), total)
	end := total
	if q.MaxResults > 0 {
		end = min(offset+q.MaxResults, total)
	}
	return matched[offset:end], total, nil
}

func (r *ResourceRepository) Ping(context.Context) error {
	return nil
}

func (r *ResourceRepository) collection(name string) *collection {
	c, ok := r.collections[name]
	if !ok {
		c = &collection{records: make(map[string]*resource.Record)}
		r.collections[name] = c
	}
	return c
}

func (r *ResourceRepository) lookup(name, id string) (*resource.Record, bool) {
	c, ok := r.collections[name]
	if !ok {
		return nil, false
	}
	rec, ok := c.records[id]
	return rec, ok
}
