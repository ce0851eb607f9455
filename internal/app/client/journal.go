package client

import (
	"context"
	"time"
)

// Operation - тип операции, которую умеет компенсировать откат
type Operation string

const OpCreate Operation = "CREATE"

// ChangeRecord - запись журнала единицы работы: одно успешное создание
type ChangeRecord struct {
	Seq        int64     `json:"seq"`
	Operation  Operation `json:"operation"`
	Collection string    `json:"collection"`
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
}

// TxState - состояние единицы работы в журнале
type TxState string

const (
	TxOpen       TxState = "open"
	TxCommitted  TxState = "committed"
	TxRolledBack TxState = "rolled_back"
	TxBroken     TxState = "broken"
)

// JournalEntry - единица работы, сохраненная в журнале
type JournalEntry struct {
	TxID      string         `json:"tx_id"`
	State     TxState        `json:"state"`
	StartedAt time.Time      `json:"started_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Records   []ChangeRecord `json:"records"`
}

// Journal - долговременная копия журналов единиц работы. Нужна, чтобы после
// неудачного отката оператор мог докомпенсировать оставшиеся создания.
type Journal interface {
	Begin(ctx context.Context, txID string, startedAt time.Time) error
	Append(ctx context.Context, txID string, records ...ChangeRecord) error
	Remove(ctx context.Context, txID string, seq int64) error
	Finish(ctx context.Context, txID string, state TxState) error
	Load(ctx context.Context, txID string) (*JournalEntry, error)
	List(ctx context.Context) ([]JournalEntry, error)
	Close() error
}

// nopJournal используется, когда долговременный журнал не настроен
type nopJournal struct{}

func (nopJournal) Begin(context.Context, string, time.Time) error       { return nil }
func (nopJournal) Append(context.Context, string, ...ChangeRecord) error { return nil }
func (nopJournal) Remove(context.Context, string, int64) error           { return nil }
func (nopJournal) Finish(context.Context, string, TxState) error         { return nil }
func (nopJournal) List(context.Context) ([]JournalEntry, error)          { return nil, nil }
func (nopJournal) Close() error                                          { return nil }

func (nopJournal) Load(context.Context, string) (*JournalEntry, error) {
	return nil, ErrUnknownTx
}
