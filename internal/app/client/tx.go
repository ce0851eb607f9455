package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"golang.org/x/exp/slog"

	"parlsync/internal/domain/document"
)

// Tx - единица работы. Каждое успешное создание записывается в журнал; Commit
// журнал очищает, Rollback удаляет созданные записи в обратном порядке.
// Хранилище не поддерживает транзакции, поэтому откатываются только создания.
type Tx struct {
	api       *API
	log       *slog.Logger
	id        string
	startedAt time.Time

	mu        sync.Mutex
	records   []ChangeRecord
	seq       int64
	broken    bool
	journaled bool
}

// Begin открывает новую единицу работы со своим журналом
func (a *API) Begin(ctx context.Context) *Tx {
	id := uuid.NewString()
	return &Tx{
		api:       a,
		log:       a.log.With("tx", id),
		id:        id,
		startedAt: time.Now().UTC(),
	}
}

// InTx выполняет fn в отдельной единице работы: при успехе фиксирует ее,
// при ошибке или панике откатывает.
func (a *API) InTx(ctx context.Context, fn func(ctx context.Context, tx *Tx) error) (err error) {
	tx := a.Begin(ctx)

	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
				a.log.Error("Откат после паники не удался", "tx", tx.ID(), "error", rbErr)
			}
			panic(p)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}

	return tx.Commit(ctx)
}

// ResumeRollback докомпенсирует единицу работы, сохраненную в журнале
// (обычно после неудачного отката в прошлом запуске).
func (a *API) ResumeRollback(ctx context.Context, txID string) error {
	entry, err := a.journal.Load(ctx, txID)
	if err != nil {
		return fmt.Errorf("load %s: %w", txID, err)
	}

	tx := &Tx{
		api:       a,
		log:       a.log.With("tx", txID),
		id:        txID,
		startedAt: entry.StartedAt,
		records:   append([]ChangeRecord(nil), entry.Records...),
		journaled: true,
	}
	for _, rec := range entry.Records {
		if rec.Seq > tx.seq {
			tx.seq = rec.Seq
		}
	}

	a.log.Info("Возобновление отката", "tx", txID, "state", entry.State, "records", len(entry.Records))

	return tx.Rollback(ctx)
}

// Journal возвращает долговременный журнал клиента
func (a *API) Journal() Journal {
	return a.journal
}

// ID возвращает идентификатор единицы работы
func (t *Tx) ID() string {
	return t.id
}

// Changes возвращает копию текущего журнала
func (t *Tx) Changes() []ChangeRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]ChangeRecord(nil), t.records...)
}

// Len возвращает число записей в журнале
func (t *Tx) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.records)
}

// Broken сообщает, что откат не удался и единица работы больше не принимает записи
func (t *Tx) Broken() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.broken
}

func (t *Tx) checkWritable() error {
	if t.Broken() {
		return fmt.Errorf("tx %s: %w", t.id, ErrTxBroken)
	}
	return nil
}

// record добавляет в журнал по одной записи на каждый созданный id
func (t *Tx) record(ctx context.Context, collection string, ids ...string) {
	if len(ids) == 0 || t.api.cfg.DryRun || collection == t.api.cfg.AuditCollection {
		return
	}

	t.mu.Lock()
	now := time.Now().UTC()
	added := make([]ChangeRecord, 0, len(ids))
	for _, id := range ids {
		t.seq++
		added = append(added, ChangeRecord{
			Seq:        t.seq,
			Operation:  OpCreate,
			Collection: collection,
			ID:         id,
			CreatedAt:  now,
		})
	}
	t.records = append(t.records, added...)
	firstWrite := !t.journaled
	t.journaled = true
	t.mu.Unlock()

	if firstWrite {
		if err := t.api.journal.Begin(ctx, t.id, t.startedAt); err != nil {
			t.log.Warn("Журнал недоступен", "error", err)
		}
	}
	if err := t.api.journal.Append(ctx, t.id, added...); err != nil {
		t.log.Warn("Не удалось записать изменения в журнал", "error", err)
	}
}

// Commit очищает журнал. Созданные записи остаются в хранилище.
// Журнал сломанной единицы работы тоже очищается, неоткаченные записи
// попадают в лог предупреждением.
func (t *Tx) Commit(ctx context.Context) error {
	t.mu.Lock()
	if t.broken {
		t.log.Warn("Фиксация после неудачного отката, записи остаются в хранилище",
			"records", len(t.records),
			"ids", lo.Map(t.records, func(rec ChangeRecord, _ int) string { return rec.ID }),
		)
	}
	n := len(t.records)
	t.records = nil
	t.broken = false
	journaled := t.journaled
	t.journaled = false
	t.mu.Unlock()

	if journaled {
		if err := t.api.journal.Finish(ctx, t.id, TxCommitted); err != nil {
			t.log.Warn("Не удалось отметить фиксацию в журнале", "error", err)
		}
	}

	t.log.Debug("commit", "records", n)
	return nil
}

// Rollback удаляет созданные записи от последней к первой. Отсутствующая запись
// считается уже удаленной. Если удаление не удалось, оставшиеся записи остаются
// в журнале, единица работы помечается сломанной и возвращается *RollbackError.
func (t *Tx) Rollback(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.records) == 0 {
		return nil
	}

	t.log.Warn("Откат единицы работы", "records", len(t.records))

	for len(t.records) > 0 {
		rec := t.records[len(t.records)-1]

		err := t.api.Delete(ctx, rec.Collection, rec.ID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			t.broken = true
			remaining := append([]ChangeRecord(nil), t.records...)
			if jErr := t.api.journal.Finish(ctx, t.id, TxBroken); jErr != nil {
				t.log.Warn("Не удалось отметить сбой отката в журнале", "error", jErr)
			}
			t.log.Error("Откат не удался, нужна ручная проверка хранилища",
				"collection", rec.Collection,
				"id", rec.ID,
				"remaining", len(remaining),
				"error", err,
			)
			return &RollbackError{TxID: t.id, Failed: rec, Remaining: remaining, Err: err}
		}
		if errors.Is(err, ErrNotFound) {
			t.log.Warn("Запись уже отсутствует", "collection", rec.Collection, "id", rec.ID)
		} else {
			t.log.Warn("Запись удалена", "collection", rec.Collection, "id", rec.ID)
		}

		t.records = t.records[:len(t.records)-1]
		if jErr := t.api.journal.Remove(ctx, t.id, rec.Seq); jErr != nil {
			t.log.Warn("Не удалось обновить журнал", "error", jErr)
		}
	}

	t.broken = false
	if jErr := t.api.journal.Finish(ctx, t.id, TxRolledBack); jErr != nil {
		t.log.Warn("Не удалось отметить откат в журнале", "error", jErr)
	}
	t.journaled = false
	return nil
}

// Create создает одну запись и возвращает ее id. Пустая запись не отправляется.
func (t *Tx) Create(ctx context.Context, collection string, doc document.Document) (string, error) {
	if len(doc) == 0 {
		t.log.Warn("Пустая запись не создана", "collection", collection)
		return "", nil
	}
	if err := t.checkWritable(); err != nil {
		return "", err
	}

	id, err := t.api.post(ctx, collection, doc)
	if err != nil {
		return "", err
	}
	t.record(ctx, collection, id)
	return id, nil
}

// CreateMany создает записи пакетами и возвращает id в порядке входа
func (t *Tx) CreateMany(ctx context.Context, collection string, docs []document.Document) ([]string, error) {
	if len(docs) == 0 {
		t.log.Warn("Пустой набор записей не создан", "collection", collection)
		return nil, nil
	}
	if err := t.checkWritable(); err != nil {
		return nil, err
	}
	return t.createChunked(ctx, collection, docs)
}

// Get делегирует чтение клиенту
func (t *Tx) Get(ctx context.Context, collection, id string, query Query) (document.Document, error) {
	return t.api.Get(ctx, collection, id, query)
}

// Find делегирует поиск клиенту
func (t *Tx) Find(ctx context.Context, collection string, query Query) (*Envelope, error) {
	return t.api.Find(ctx, collection, query)
}

// Update обновляет запись. Обновления не журналируются.
func (t *Tx) Update(ctx context.Context, collection, id string, doc document.Document, replace bool) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	return t.api.Update(ctx, collection, id, doc, replace)
}

// Delete удаляет запись. Удаления не журналируются.
func (t *Tx) Delete(ctx context.Context, collection, id string) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	return t.api.Delete(ctx, collection, id)
}
