package migration

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	// драйвер postgres и источник file регистрируются при импорте
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"parlsync/internal/app/server/config"
)

var ErrDirty = errors.New("schema is dirty, fix it manually")

// Migrator - часть migrate.Migrate, которой пользуется хранилище
type Migrator interface {
	Up() error
	Version() (uint, bool, error)
	Close() (error, error)
}

// MigrationEngine открывает мигратор по адресам источника и базы
type MigrationEngine func(sourceURL, databaseURL string) (Migrator, error)

type Migration struct {
	cfg    *config.Config
	engine MigrationEngine
}

func NewMigration(conf *config.Config, engine MigrationEngine) *Migration {
	return &Migration{
		cfg:    conf,
		engine: engine,
	}
}

func DefaultEngine(sourceURL, databaseURL string) (Migrator, error) {
	return migrate.New(sourceURL, databaseURL)
}

// Up накатывает схему хранилища ресурсов. Отсутствие новых миграций ошибкой не считается.
func (mg *Migration) Up() error {
	return mg.with(func(m Migrator) error {
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migration up: %w", err)
		}
		if _, dirty, err := m.Version(); err == nil && dirty {
			return ErrDirty
		}
		return nil
	})
}

// Version возвращает номер примененной миграции; 0 - схема еще не создана
func (mg *Migration) Version() (version uint, err error) {
	err = mg.with(func(m Migrator) error {
		v, dirty, err := m.Version()
		switch {
		case errors.Is(err, migrate.ErrNilVersion):
			return nil
		case err != nil:
			return fmt.Errorf("migration version: %w", err)
		case dirty:
			return fmt.Errorf("version %d: %w", v, ErrDirty)
		}
		version = v
		return nil
	})
	return version, err
}

func (mg *Migration) with(fn func(m Migrator) error) (err error) {
	m, err := mg.engine(mg.sourceURL(), mg.cfg.DB.DatabaseURI)
	if err != nil {
		return err
	}
	defer func() {
		serr, dberr := m.Close()
		if serr != nil {
			err = errors.Join(err, fmt.Errorf("migration source error: %w", serr))
		}
		if dberr != nil {
			err = errors.Join(err, fmt.Errorf("migration database error: %w", dberr))
		}
	}()

	return fn(m)
}

// sourceURL - MIGRATIONS_PATH как есть, если это URL, иначе каталог на диске
func (mg *Migration) sourceURL() string {
	if strings.Contains(mg.cfg.DB.Migrations, "://") {
		return mg.cfg.DB.Migrations
	}
	return "file://" + mg.cfg.DB.Migrations
}
