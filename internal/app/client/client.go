package client

import (
	"context"
	"fmt"

	"golang.org/x/exp/slog"

	"parlsync/internal/app/client/config"
)

// App связывает конфигурацию, клиент хранилища, журнал и сервис синхронизации
type App struct {
	config      *config.Config
	log         *slog.Logger
	journal     Journal
	api         *API
	syncService *SyncService
}

func New(cfg *config.Config, log *slog.Logger) (*App, error) {
	var journal Journal = nopJournal{}
	if cfg.JournalPath != "" {
		sqliteJournal, err := NewSQLiteJournal(cfg.JournalPath)
		if err != nil {
			log.Warn("Не удалось открыть журнал, откат возможен только в пределах процесса", "path", cfg.JournalPath, "error", err)
		} else {
			journal = sqliteJournal
		}
	}

	api := NewAPI(cfg, log, WithJournal(journal))

	app := &App{
		config:      cfg,
		log:         log,
		journal:     journal,
		api:         api,
		syncService: NewSyncService(api, log),
	}

	if cfg.DryRun {
		log.Info("Режим dry run: запись в хранилище отключена")
	}

	return app, nil
}

// API возвращает клиент хранилища
func (a *App) API() *API {
	return a.api
}

// Config возвращает конфигурацию
func (a *App) Config() *config.Config {
	return a.config
}

// Journal возвращает долговременный журнал
func (a *App) Journal() Journal {
	return a.journal
}

// RunJob загружает задание из файла и выполняет его
func (a *App) RunJob(ctx context.Context, path string) (*SyncResult, error) {
	job, err := LoadJob(path)
	if err != nil {
		return nil, err
	}
	return a.syncService.Run(ctx, job)
}

// PendingTx возвращает единицы работы, оставшиеся в журнале
func (a *App) PendingTx(ctx context.Context) ([]JournalEntry, error) {
	entries, err := a.journal.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения журнала: %w", err)
	}
	return entries, nil
}

// Close освобождает ресурсы приложения
func (a *App) Close() error {
	return a.journal.Close()
}
