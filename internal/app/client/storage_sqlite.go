package client

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var journalMigrations embed.FS

const memoryPath = ":memory:"

// SQLiteJournal хранит журналы единиц работы в SQLite
type SQLiteJournal struct {
	db *sql.DB
}

func NewSQLiteJournal(path string) (*SQLiteJournal, error) {
	dsn := path + "?_foreign_keys=on"
	if path != memoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("ошибка создания каталога журнала: %w", err)
		}
		dsn += "&_journal_mode=WAL"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия базы данных: %w", err)
	}
	// одно соединение: иначе каждая сессия :memory: видит свою базу
	db.SetMaxOpenConns(1)

	if err := migrateJournal(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("ошибка инициализации таблиц: %w", err)
	}

	return &SQLiteJournal{db: db}, nil
}

func migrateJournal(db *sql.DB) error {
	src, err := iofs.New(journalMigrations, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open migrations: %w", err)
	}

	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to instantiate migrations: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (s *SQLiteJournal) Begin(ctx context.Context, txID string, startedAt time.Time) error {
	now := formatTime(time.Now())
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tx (id, state, started_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at
	`, txID, TxOpen, formatTime(startedAt), now)
	if err != nil {
		return fmt.Errorf("ошибка записи единицы работы: %w", err)
	}
	return nil
}

func (s *SQLiteJournal) Append(ctx context.Context, txID string, records ...ChangeRecord) error {
	if len(records) == 0 {
		return nil
	}

	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer dbTx.Rollback() //nolint:errcheck

	stmt, err := dbTx.PrepareContext(ctx, `
		INSERT INTO change_records (tx_id, seq, operation, collection, resource_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("ошибка подготовки запроса: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		if _, err := stmt.ExecContext(ctx, txID, rec.Seq, rec.Operation, rec.Collection, rec.ID, formatTime(rec.CreatedAt)); err != nil {
			return fmt.Errorf("ошибка сохранения изменения %s/%s: %w", rec.Collection, rec.ID, err)
		}
	}

	if _, err := dbTx.ExecContext(ctx, `UPDATE tx SET updated_at = ? WHERE id = ?`, formatTime(time.Now()), txID); err != nil {
		return fmt.Errorf("ошибка обновления единицы работы: %w", err)
	}

	return dbTx.Commit()
}

func (s *SQLiteJournal) Remove(ctx context.Context, txID string, seq int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM change_records WHERE tx_id = ? AND seq = ?`, txID, seq)
	if err != nil {
		return fmt.Errorf("ошибка удаления изменения: %w", err)
	}
	return nil
}

// Finish закрывает единицу работы. Зафиксированные и откаченные удаляются из
// журнала целиком, сломанные остаются вместе с неоткаченными записями.
func (s *SQLiteJournal) Finish(ctx context.Context, txID string, state TxState) error {
	var err error
	switch state {
	case TxCommitted, TxRolledBack:
		_, err = s.db.ExecContext(ctx, `DELETE FROM tx WHERE id = ?`, txID)
	default:
		_, err = s.db.ExecContext(ctx, `UPDATE tx SET state = ?, updated_at = ? WHERE id = ?`,
			state, formatTime(time.Now()), txID)
	}
	if err != nil {
		return fmt.Errorf("ошибка обновления состояния %s: %w", txID, err)
	}
	return nil
}

func (s *SQLiteJournal) Load(ctx context.Context, txID string) (*JournalEntry, error) {
	var entry JournalEntry
	var startedAt, updatedAt string

	err := s.db.QueryRowContext(ctx, `
		SELECT id, state, started_at, updated_at FROM tx WHERE id = ?
	`, txID).Scan(&entry.TxID, &entry.State, &startedAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUnknownTx
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка получения единицы работы: %w", err)
	}
	entry.StartedAt = parseTime(startedAt)
	entry.UpdatedAt = parseTime(updatedAt)

	entry.Records, err = s.records(ctx, txID)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *SQLiteJournal) List(ctx context.Context) ([]JournalEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, state, started_at, updated_at FROM tx ORDER BY started_at
	`)
	if err != nil {
		return nil, fmt.Errorf("ошибка выполнения запроса: %w", err)
	}
	defer rows.Close()

	var entries []JournalEntry
	for rows.Next() {
		var entry JournalEntry
		var startedAt, updatedAt string
		if err := rows.Scan(&entry.TxID, &entry.State, &startedAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования единицы работы: %w", err)
		}
		entry.StartedAt = parseTime(startedAt)
		entry.UpdatedAt = parseTime(updatedAt)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for i := range entries {
		if entries[i].Records, err = s.records(ctx, entries[i].TxID); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

func (s *SQLiteJournal) records(ctx context.Context, txID string) ([]ChangeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, operation, collection, resource_id, created_at
		FROM change_records
		WHERE tx_id = ?
		ORDER BY seq
	`, txID)
	if err != nil {
		return nil, fmt.Errorf("ошибка выполнения запроса: %w", err)
	}
	defer rows.Close()

	var records []ChangeRecord
	for rows.Next() {
		var rec ChangeRecord
		var createdAt string
		if err := rows.Scan(&rec.Seq, &rec.Operation, &rec.Collection, &rec.ID, &createdAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования изменения: %w", err)
		}
		rec.CreatedAt = parseTime(createdAt)
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *SQLiteJournal) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
