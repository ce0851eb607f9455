package client

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJournal(t *testing.T) *SQLiteJournal {
	t.Helper()
	j, err := NewSQLiteJournal(filepath.Join(t.TempDir(), "state", "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestSQLiteJournal_Lifecycle(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()
	started := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, j.Begin(ctx, "tx-1", started))
	require.NoError(t, j.Append(ctx, "tx-1",
		ChangeRecord{Seq: 1, Operation: OpCreate, Collection: "people", ID: "p1", CreatedAt: started},
		ChangeRecord{Seq: 2, Operation: OpCreate, Collection: "people", ID: "p2", CreatedAt: started},
		ChangeRecord{Seq: 3, Operation: OpCreate, Collection: "events", ID: "e1", CreatedAt: started},
	))
	require.NoError(t, j.Remove(ctx, "tx-1", 3))

	entry, err := j.Load(ctx, "tx-1")
	require.NoError(t, err)
	assert.Equal(t, TxOpen, entry.State)
	assert.True(t, started.Equal(entry.StartedAt))
	require.Len(t, entry.Records, 2)
	assert.Equal(t, "p1", entry.Records[0].ID)
	assert.Equal(t, int64(2), entry.Records[1].Seq)

	require.NoError(t, j.Finish(ctx, "tx-1", TxBroken))
	entries, err := j.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, TxBroken, entries[0].State)
	assert.Len(t, entries[0].Records, 2)

	require.NoError(t, j.Finish(ctx, "tx-1", TxCommitted))
	_, err = j.Load(ctx, "tx-1")
	assert.ErrorIs(t, err, ErrUnknownTx)
}

func TestSQLiteJournal_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	ctx := context.Background()

	j, err := NewSQLiteJournal(path)
	require.NoError(t, err)
	require.NoError(t, j.Begin(ctx, "tx-1", time.Now()))
	require.NoError(t, j.Append(ctx, "tx-1", ChangeRecord{Seq: 1, Operation: OpCreate, Collection: "people", ID: "p1"}))
	require.NoError(t, j.Close())

	j, err = NewSQLiteJournal(path)
	require.NoError(t, err)
	defer j.Close()

	entry, err := j.Load(ctx, "tx-1")
	require.NoError(t, err)
	assert.Len(t, entry.Records, 1)
}

func TestTx_MirrorsJournal(t *testing.T) {
	store := newFakeStore(t)
	j := newTestJournal(t)
	api := newTestAPI(t, store, WithJournal(j))
	ctx := context.Background()

	tx := api.Begin(ctx)
	_, err := tx.CreateMany(ctx, "people", people(3))
	require.NoError(t, err)

	entry, err := j.Load(ctx, tx.ID())
	require.NoError(t, err)
	assert.Len(t, entry.Records, 3)

	require.NoError(t, tx.Commit(ctx))
	entries, err := j.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// единица работы без созданий в журнал не попадает
	ro := api.Begin(ctx)
	_, err = ro.Find(ctx, "people", nil)
	require.NoError(t, err)
	require.NoError(t, ro.Commit(ctx))
	entries, err = j.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAPI_ResumeRollback(t *testing.T) {
	store := newFakeStore(t)
	store.failDeleteFor("p2", http.StatusServiceUnavailable)
	j := newTestJournal(t)
	api := newTestAPI(t, store, WithJournal(j))
	ctx := context.Background()

	tx := api.Begin(ctx)
	_, err := tx.CreateMany(ctx, "people", people(3))
	require.NoError(t, err)

	require.ErrorIs(t, tx.Rollback(ctx), ErrRollbackFailed)

	entry, err := j.Load(ctx, tx.ID())
	require.NoError(t, err)
	assert.Equal(t, TxBroken, entry.State)
	assert.Equal(t, []string{"p1", "p2"}, changeIDs(entry.Records))

	// следующий запуск: хранилище снова доступно
	store.failDeleteFor("p2", 0)
	store.reset()
	next := newTestAPI(t, store, WithJournal(j))

	require.NoError(t, next.ResumeRollback(ctx, tx.ID()))
	assert.Equal(t, []string{"/people/p2", "/people/p1"}, store.paths(store.only(http.MethodDelete)))
	assert.Equal(t, 0, store.count("people"))

	_, err = j.Load(ctx, tx.ID())
	assert.ErrorIs(t, err, ErrUnknownTx)

	assert.ErrorIs(t, next.ResumeRollback(ctx, "missing"), ErrUnknownTx)
}

func TestAPI_ResumeRollback_WithoutJournal(t *testing.T) {
	store := newFakeStore(t)
	api := newTestAPI(t, store)

	err := api.ResumeRollback(context.Background(), "any")
	assert.ErrorIs(t, err, ErrUnknownTx)
}
