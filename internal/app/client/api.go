package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"parlsync/internal/app/client/config"
	"parlsync/internal/domain/document"
)

// Коллекции хранилища, с которыми работают задания
const (
	CollectionPeople = "people"
	CollectionLogs   = "logs"
)

// ServerManagedFields - поля, которые хранилище проставляет само. При сравнении
// желаемой записи с существующей они не учитываются.
var ServerManagedFields = []string{"_created", "_updated", "_etag", "_links", "created_at", "updated_at"}

// API - клиент хранилища ресурсов. Запись через него идет только в рамках Tx,
// чтобы каждое создание попадало в журнал отката.
type API struct {
	cfg     *config.Config
	log     *slog.Logger
	http    *httpClient
	journal Journal
}

type Option func(*API)

// WithJournal подключает долговременный журнал единиц работы
func WithJournal(j Journal) Option {
	return func(a *API) {
		if j != nil {
			a.journal = j
		}
	}
}

func NewAPI(cfg *config.Config, log *slog.Logger, opts ...Option) *API {
	a := &API{
		cfg:     cfg,
		log:     log.With("component", "api"),
		http:    NewHTTPClient(cfg, log),
		journal: nopJournal{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Config возвращает конфигурацию клиента
func (a *API) Config() *config.Config {
	return a.cfg
}

// SetCredentials меняет учетные данные после создания клиента
func (a *API) SetCredentials(user, password string) {
	a.http.SetCredentials(user, password)
}

// Get получает одну запись по id
func (a *API) Get(ctx context.Context, collection, id string, query Query) (document.Document, error) {
	u, err := a.http.resourceURL(collection, id, query)
	if err != nil {
		return nil, err
	}

	a.log.Debug("get", "collection", collection, "id", id)

	env, err := a.http.Do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	return env.Body, nil
}

// Find выполняет запрос к коллекции. С параметром all=true обходит все страницы.
func (a *API) Find(ctx context.Context, collection string, query Query) (*Envelope, error) {
	if query.All() {
		return a.findAll(ctx, collection, query)
	}

	q := query.Clone()
	delete(q, QueryAll)

	u, err := a.http.resourceURL(collection, "", q)
	if err != nil {
		return nil, err
	}

	a.log.Debug("find", "collection", collection, "query", q)

	return a.http.Do(ctx, http.MethodGet, u, nil)
}

// FindAll возвращает все записи коллекции, подходящие под запрос
func (a *API) FindAll(ctx context.Context, collection string, query Query) ([]document.Document, error) {
	q := query.Clone()
	q[QueryAll] = true

	env, err := a.Find(ctx, collection, q)
	if err != nil {
		return nil, err
	}
	return env.Items, nil
}

// Update отправляет частичное (PATCH) или полное (PUT) обновление записи.
// id внутри записи должен совпадать с обновляемым и перед отправкой убирается.
func (a *API) Update(ctx context.Context, collection, id string, doc document.Document, replace bool) error {
	if embedded := doc.ID(); embedded != "" && embedded != id {
		return &IDMismatchError{Collection: collection, TargetID: id, EmbeddedID: embedded}
	}

	body := doc.Without(document.FieldID)
	method := http.MethodPatch
	if replace {
		method = http.MethodPut
	}

	if len(body) == 0 && !replace {
		a.log.Warn("Пустое обновление пропущено", "collection", collection, "id", id)
		return nil
	}

	u, err := a.http.resourceURL(collection, id, nil)
	if err != nil {
		return err
	}

	if a.cfg.DryRun {
		a.log.Info("dry run: запись пропущена", "method", method, "collection", collection, "id", id, "body", body.String())
		return nil
	}

	a.log.Debug("update", "method", method, "collection", collection, "id", id)

	_, err = a.http.Do(ctx, method, u, body)
	return err
}

// Delete удаляет запись. Удаление не журналируется и не откатывается.
func (a *API) Delete(ctx context.Context, collection, id string) error {
	u, err := a.http.resourceURL(collection, id, nil)
	if err != nil {
		return err
	}

	if a.cfg.DryRun {
		a.log.Info("dry run: удаление пропущено", "collection", collection, "id", id)
		return nil
	}

	a.log.Debug("delete", "collection", collection, "id", id)

	_, err = a.http.Do(ctx, http.MethodDelete, u, nil)
	return err
}

// post создает одну запись и возвращает ее id
func (a *API) post(ctx context.Context, collection string, doc document.Document) (string, error) {
	if a.cfg.DryRun {
		id := dryRunID(doc)
		a.log.Info("dry run: создание пропущено", "collection", collection, "id", id, "body", doc.String())
		return id, nil
	}

	u, err := a.http.resourceURL(collection, "", nil)
	if err != nil {
		return "", err
	}

	a.log.Debug("create", "collection", collection)

	env, err := a.http.Do(ctx, http.MethodPost, u, doc)
	if err != nil {
		return "", err
	}
	if env.ID == "" {
		return "", &APIError{URL: u, StatusCode: env.HTTPStatus, Code: env.HTTPStatus,
			Message: "create response carries no id", Envelope: env}
	}
	return env.ID, nil
}

// postMany создает пакет записей одним запросом
func (a *API) postMany(ctx context.Context, collection string, docs []document.Document) ([]string, error) {
	if a.cfg.DryRun {
		ids := make([]string, len(docs))
		for i, doc := range docs {
			ids[i] = dryRunID(doc)
		}
		a.log.Info("dry run: пакетное создание пропущено", "collection", collection, "count", len(docs))
		return ids, nil
	}

	u, err := a.http.resourceURL(collection, "", nil)
	if err != nil {
		return nil, err
	}

	a.log.Debug("create many", "collection", collection, "count", len(docs))

	env, err := a.http.Do(ctx, http.MethodPost, u, docs)
	if err != nil {
		return nil, err
	}
	return env.ItemIDs(), nil
}

func dryRunID(doc document.Document) string {
	if id := doc.ID(); id != "" {
		return id
	}
	return fmt.Sprintf("dryrun-%s", uuid.NewString())
}
