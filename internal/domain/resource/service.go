package resource

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"golang.org/x/exp/slog"

	"parlsync/internal/domain/document"
)

const (
	defaultPageSize  = 25
	defaultPageLimit = 50
)

type Servicer interface {
	Create(ctx context.Context, collection string, docs []document.Document) ([]Record, error)
	Get(ctx context.Context, collection, id string) (*Record, error)
	Patch(ctx context.Context, collection, id string, patch document.Document) (*Record, error)
	Replace(ctx context.Context, collection, id string, doc document.Document) (*Record, error)
	Delete(ctx context.Context, collection, id string) error
	Find(ctx context.Context, collection string, q Query) (Page, error)
	Ping(ctx context.Context) error
}

type Service struct {
	repo      Repository
	log       *slog.Logger
	pageSize  int
	pageLimit int
	now       func() time.Time
	newID     func() string
}

type Option func(*Service)

// WithPaging задает размер страницы по умолчанию и верхний предел max_results
func WithPaging(size, limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.pageLimit = limit
		}
		if size > 0 {
			s.pageSize = min(size, s.pageLimit)
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(s *Service) {
		s.newID = newID
	}
}

func NewService(repo Repository, log *slog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		log:       log.With("component", "resource_service"),
		pageSize:  defaultPageSize,
		pageLimit: defaultPageLimit,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create проверяет и сохраняет документы. Если хоть один документ не прошел
// проверку, не сохраняется ни один.
func (s *Service) Create(ctx context.Context, collection string, docs []document.Document) ([]Record, error) {
	if err := ValidateCollection(collection); err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrEmptyRequest
	}

	now := s.timestamp()
	issues := make(map[int]Issues)
	positions := make(map[string]int, len(docs))
	records := make([]*Record, 0, len(docs))

	for i, doc := range docs {
		if is := validate(doc, ""); len(is) > 0 {
			issues[i] = is
			continue
		}

		id := doc.ID()
		if id == "" {
			id = s.newID()
		}
		if _, dup := positions[id]; dup {
			issues[i] = notUnique(id)
			continue
		}
		positions[id] = i

		data := doc.Clone()
		data[document.FieldID] = id
		records = append(records, &Record{
			Collection: collection,
			ID:         id,
			Data:       data,
			Created:    now,
			Updated:    now,
			ETag:       etag(data),
		})
	}

	if len(issues) == 0 {
		taken, err := s.existing(ctx, collection, lo.Keys(positions))
		if err != nil {
			return nil, err
		}
		for _, id := range taken {
			issues[positions[id]] = notUnique(id)
		}
	}

	if len(issues) > 0 {
		s.log.Debug("insertion rejected", "collection", collection, "documents", len(docs), "invalid", len(issues))
		return nil, &ValidationError{Items: issues}
	}

	if err := s.repo.Insert(ctx, records...); err != nil {
		return nil, fmt.Errorf("insert into %s: %w", collection, err)
	}

	s.log.Debug("documents created", "collection", collection, "count", len(records))
	return lo.FromSlicePtr(records), nil
}

func (s *Service) Get(ctx context.Context, collection, id string) (*Record, error) {
	if err := ValidateCollection(collection); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, collection, id)
}

// Patch рекурсивно накладывает изменения на документ
func (s *Service) Patch(ctx context.Context, collection, id string, patch document.Document) (*Record, error) {
	if err := ValidateCollection(collection); err != nil {
		return nil, err
	}
	rec, err := s.repo.Get(ctx, collection, id)
	if err != nil {
		return nil, err
	}
	if is := validate(patch, id); len(is) > 0 {
		return nil, &ValidationError{Items: map[int]Issues{0: is}}
	}

	data := rec.Data.Clone()
	data.Merge(patch.Without(document.FieldID))
	return s.save(ctx, rec, data)
}

// Replace заменяет документ целиком, сохраняя id и время создания
func (s *Service) Replace(ctx context.Context, collection, id string, doc document.Document) (*Record, error) {
	if err := ValidateCollection(collection); err != nil {
		return nil, err
	}
	rec, err := s.repo.Get(ctx, collection, id)
	if err != nil {
		return nil, err
	}
	if is := validate(doc, id); len(is) > 0 {
		return nil, &ValidationError{Items: map[int]Issues{0: is}}
	}

	return s.save(ctx, rec, doc.Without(document.FieldID))
}

func (s *Service) Delete(ctx context.Context, collection, id string) error {
	if err := ValidateCollection(collection); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, collection, id); err != nil {
		return err
	}
	s.log.Debug("document deleted", "collection", collection, "id", id)
	return nil
}

// Find приводит параметры страницы к допустимым и выполняет поиск
func (s *Service) Find(ctx context.Context, collection string, q Query) (Page, error) {
	if err := ValidateCollection(collection); err != nil {
		return Page{}, err
	}
	if err := ValidateWhere(q.Where); err != nil {
		return Page{}, err
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.MaxResults <= 0 {
		q.MaxResults = s.pageSize
	}
	q.MaxResults = min(q.MaxResults, s.pageLimit)

	items, total, err := s.repo.Find(ctx, collection, q)
	if err != nil {
		return Page{}, fmt.Errorf("find in %s: %w", collection, err)
	}

	return Page{
		Items:      items,
		Total:      total,
		Page:       q.Page,
		MaxResults: q.MaxResults,
	}, nil
}

func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (s *Service) save(ctx context.Context, rec *Record, data document.Document) (*Record, error) {
	data[document.FieldID] = rec.ID
	rec.Data = data
	rec.Updated = s.timestamp()
	rec.ETag = etag(data)

	if err := s.repo.Replace(ctx, rec); err != nil {
		return nil, fmt.Errorf("replace %s/%s: %w", rec.Collection, rec.ID, err)
	}
	return rec, nil
}

// existing возвращает id, уже занятые в коллекции
func (s *Service) existing(ctx context.Context, collection string, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	found, _, err := s.repo.Find(ctx, collection, Query{
		Where:      document.Document{document.FieldID: document.Document{OpIn: lo.ToAnySlice(ids)}},
		Page:       1,
		MaxResults: len(ids),
	})
	if err != nil {
		return nil, fmt.Errorf("check ids in %s: %w", collection, err)
	}
	return lo.Map(found, func(r Record, _ int) string { return r.ID }), nil
}

// хранилище отдает время с точностью до секунды
func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Second)
}

// validate проверяет документ. ownID - id изменяемой записи, для создания пустой.
func validate(doc document.Document, ownID string) Issues {
	issues := make(Issues)
	for field, value := range doc {
		switch {
		case field == document.FieldID:
			id, ok := value.(string)
			switch {
			case !ok || id == "":
				issues[field] = "must be of string type"
			case ownID != "" && id != ownID:
				issues[field] = "field is read-only"
			}
		case strings.HasPrefix(field, "_"), strings.HasPrefix(field, "$"), strings.Contains(field, "."):
			issues[field] = "unknown field"
		}
	}
	return issues
}

func notUnique(id string) Issues {
	return Issues{document.FieldID: fmt.Sprintf("value '%s' is not unique", id)}
}
